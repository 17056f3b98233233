package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hanyue/activity-seats/internal/model"
)

// UserRepo provides access to the `users` table. Users are referenced by
// activities (creator) and activity_seats (holder) but owned here.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, openid, mobile, nickname, password, is_admin, created_at, updated_at"

// Create inserts a mobile+password account and returns the stored row.
// The password must already be hashed by the caller.
func (r *UserRepo) Create(ctx context.Context, mobile, passwordHash string, nickname *string) (*model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (mobile, password, nickname) VALUES (?,?,?)",
		mobile, passwordHash, nickname)
	if err != nil {
		// MySQL duplicate key -> mobile already registered
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrMobileExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// CreateWeChat inserts an account identified only by its WeChat openid.
// Such accounts have no password until the user binds one.
func (r *UserRepo) CreateWeChat(ctx context.Context, openid, nickname string) (*model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (openid, nickname) VALUES (?,?)",
		openid, nickname)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a user by id. Returns (nil, nil) when no row exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByMobile fetches a user by mobile number. Returns (nil, nil) when no
// row exists so that login can report a uniform credential failure.
func (r *UserRepo) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE mobile=? LIMIT 1", mobile)
}

// GetByOpenID fetches a user by WeChat openid. Returns (nil, nil) when no
// row exists; WeChat login then creates the account.
func (r *UserRepo) GetByOpenID(ctx context.Context, openid string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE openid=? LIMIT 1", openid)
}

// UpdateNickname sets the display name and returns the updated row.
func (r *UserRepo) UpdateNickname(ctx context.Context, id uint64, nickname string) (*model.User, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET nickname=?, updated_at=NOW() WHERE id=?", nickname, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UnbindWeChat clears the openid so the account can no longer be reached
// through WeChat silent login. The mobile+password credential, when
// present, keeps working.
func (r *UserRepo) UnbindWeChat(ctx context.Context, id uint64) (*model.User, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET openid=NULL, updated_at=NOW() WHERE id=?", id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.OpenID, &u.Mobile, &u.Nickname, &u.Password,
		&u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
