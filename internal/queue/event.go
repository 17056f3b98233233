// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// SeatEvictedEvent is published when a capacity shrink deletes a seat that
// was still held. The shrink itself is silent toward the displaced user;
// this event is the audit trail, carrying enough for downstream consumers
// to log or notify without querying the primary database.
type SeatEvictedEvent struct {
	ActivityID    uint64  `json:"activity_id"`
	ActivityTitle string  `json:"activity_title"`
	SeatNumber    uint32  `json:"seat_number"`
	UserID        uint64  `json:"user_id"`
	Nickname      *string `json:"nickname,omitempty"`
	EvictedAt     string  `json:"evicted_at"`
}
