package model

import "time"

// User represents a row in the `users` table.  An account can log in with
// a mobile number and password, with a WeChat openid, or both.  Accounts
// created through WeChat silent login have no password until the user
// binds one.
//
// Fields:
//  ID        – primary key identifier.
//  OpenID    – WeChat OpenID used for silent login (nullable, unique).
//  Mobile    – mobile number used for password login (nullable, unique).
//  Nickname  – display name shown next to an occupied seat.
//  Password  – bcrypt hash; nil for WeChat-only accounts.
//  IsAdmin   – whether the user may create and manage activities.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type User struct {
	ID        uint64
	OpenID    *string
	Mobile    *string
	Nickname  *string
	Password  *string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile is the sanitized user shape returned to clients.  The
// password hash is never serialized.
type UserProfile struct {
	ID        uint64    `json:"id"`
	OpenID    *string   `json:"openid"`
	Mobile    *string   `json:"mobile"`
	Nickname  *string   `json:"nickname"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile strips credentials from a User for API responses.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		OpenID:    u.OpenID,
		Mobile:    u.Mobile,
		Nickname:  u.Nickname,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
