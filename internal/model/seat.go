package model

import "time"

// ActivitySeat represents a row in the `activity_seats` table.  Seat
// numbers are unique per activity (enforced by a composite unique key)
// and run from 1 to the activity's MaxParticipants.
//
// A seat is free when UserID is nil; Remark and OccupiedAt are cleared
// together with UserID so a free seat never carries stale holder data.
type ActivitySeat struct {
	ID         uint64     `json:"id"`
	ActivityID uint64     `json:"activityId"`
	SeatNumber uint32     `json:"seatNumber"`
	UserID     *uint64    `json:"userId"`
	Remark     *string    `json:"remark"`
	OccupiedAt *time.Time `json:"occupiedAt"`
}

// SeatHolder is the occupant profile embedded in a seat detail.  Only
// non-sensitive fields are exposed.
type SeatHolder struct {
	ID       uint64  `json:"id"`
	Nickname *string `json:"nickname"`
	Mobile   *string `json:"mobile"`
}

// SeatDetail is the per-seat shape of the activity detail view.  User is
// nil whenever the seat is free; clients never see a partial holder.
type SeatDetail struct {
	ID         uint64      `json:"id"`
	SeatNumber uint32      `json:"seatNumber"`
	IsOccupied bool        `json:"isOccupied"`
	Remark     *string     `json:"remark"`
	OccupiedAt *time.Time  `json:"occupiedAt"`
	User       *SeatHolder `json:"user"`
}
