package model

import "time"

// Activity lifecycle statuses.  New activities start as published and can
// be moved to cancelled or completed by their creator.  Seats can only be
// occupied while the activity is published.
const (
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Activity represents a row in the `activities` table: a bookable event
// with a fixed number of numbered seats (MaxParticipants).  The seat rows
// are created together with the activity and resized with it, so the
// capacity and the seat count never diverge.
type Activity struct {
	ID              uint64     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	MaxParticipants uint32     `json:"maxParticipants"`
	CreatorID       uint64     `json:"creatorId"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ActivitySummary is the listing shape: activity fields plus the number
// of seats currently held.  OccupiedCount is derived from the seat
// ledger, never stored.
type ActivitySummary struct {
	ID              uint64     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	MaxParticipants uint32     `json:"maxParticipants"`
	Status          string     `json:"status"`
	OccupiedCount   uint32     `json:"occupiedCount"`
}
