package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hanyue/activity-seats/internal/model"
)

// SeatRepo is the seat ledger: the only mutation path for seat holder
// state. Occupy and Release are expressed as single conditional UPDATEs
// whose WHERE clause re-asserts the precondition at write time, so two
// concurrent callers can never both succeed on the same seat. The
// database row update is the lock; there is no in-process locking.
type SeatRepo struct{ DB *sql.DB }

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{DB: db} }

const seatColumns = "id, activity_id, seat_number, user_id, remark, occupied_at"

// Occupy claims a seat for a user. It runs in one transaction:
//
//  1. the activity must exist and be published (advisory check),
//  2. the user must not already hold a seat in this activity,
//  3. the claim itself: UPDATE ... WHERE user_id IS NULL,
//  4. a locking re-check that the user now holds exactly one seat.
//
// Step 3 is the per-seat correctness mechanism and step 4 the per-user
// one. The first two checks only produce friendlier errors; a claim that
// slips past them still cannot violate seat uniqueness because the
// conditional update matches no row once a winner is committed, and
// cannot leave the user with two seats because step 4 runs as a locking
// read before commit. Zero rows affected means the seat was taken
// between check and claim (or the seat number does not exist) and is
// reported as ErrSeatTaken, an expected outcome under contention, never
// retried here.
func (r *SeatRepo) Occupy(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64, remark *string) (*model.ActivitySeat, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM activities WHERE id=?", activityID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	if status != model.StatusPublished {
		return nil, ErrActivityNotOpen
	}

	// one seat per user per activity
	var heldNumber uint32
	err = tx.QueryRowContext(ctx,
		"SELECT seat_number FROM activity_seats WHERE activity_id=? AND user_id=?",
		activityID, userID).Scan(&heldNumber)
	if err == nil {
		return nil, &AlreadyHeldError{SeatNumber: heldNumber}
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	// the atomic conditional claim; first writer wins
	res, err := tx.ExecContext(ctx,
		`UPDATE activity_seats
		 SET user_id=?, remark=?, occupied_at=?
		 WHERE activity_id=? AND seat_number=? AND user_id IS NULL`,
		userID, remark, time.Now().UTC(), activityID, seatNumber)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrSeatTaken
	}

	// Re-check the per-user invariant under lock. The advisory read above
	// is a snapshot read: two transactions claiming different seats for
	// the same user each see no held seat, lock different rows and would
	// both commit. The locking read sees committed rows and blocks on
	// uncommitted ones, so of two racing claims at most one reaches a
	// commit with the user on a single seat; the other rolls back here
	// (or is aborted by the store as a deadlock victim).
	held, err := heldSeatsForUpdateTx(ctx, tx, activityID, userID)
	if err != nil {
		return nil, err
	}
	if len(held) > 1 {
		for _, hn := range held {
			if hn != seatNumber {
				return nil, &AlreadyHeldError{SeatNumber: hn}
			}
		}
	}

	var seat model.ActivitySeat
	if err := tx.QueryRowContext(ctx,
		"SELECT "+seatColumns+" FROM activity_seats WHERE activity_id=? AND seat_number=?",
		activityID, seatNumber).Scan(
		&seat.ID, &seat.ActivityID, &seat.SeatNumber,
		&seat.UserID, &seat.Remark, &seat.OccupiedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &seat, nil
}

// heldSeatsForUpdateTx lists every seat the user holds in the activity
// with a locking read, so concurrent uncommitted claims are waited on
// instead of being invisible.
func heldSeatsForUpdateTx(ctx context.Context, tx *sql.Tx, activityID, userID uint64) ([]uint32, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT seat_number FROM activity_seats WHERE activity_id=? AND user_id=? FOR UPDATE",
		activityID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var held []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		held = append(held, n)
	}
	return held, rows.Err()
}

// Release frees a seat, but only when the caller holds it: the WHERE
// clause matches on user_id, so releasing a free seat or someone else's
// seat affects zero rows and both report ErrSeatNotHeld. Activity status
// is deliberately not checked; holders can always release, even after an
// activity is cancelled.
func (r *SeatRepo) Release(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE activity_seats
		 SET user_id=NULL, remark=NULL, occupied_at=NULL
		 WHERE activity_id=? AND seat_number=? AND user_id=?`,
		activityID, seatNumber, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSeatNotHeld
	}
	return nil
}

// UpdateRemark changes the remark on a seat the caller already holds.
// Ownership is verified by a read before the write rather than a
// conditional update: the remark does not participate in the uniqueness
// invariant, so the only possible race is the holder racing themselves.
func (r *SeatRepo) UpdateRemark(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64, remark string) error {
	var seatID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM activity_seats WHERE activity_id=? AND seat_number=? AND user_id=?",
		activityID, seatNumber, userID).Scan(&seatID)
	if err == sql.ErrNoRows {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE activity_seats SET remark=? WHERE id=?", remark, seatID)
	return err
}

// ListByActivity returns every seat of an activity in seat-number order,
// with the holder profile joined in. Free seats carry a nil User; the
// join result is discarded entirely rather than partially exposed.
func (r *SeatRepo) ListByActivity(ctx context.Context, activityID uint64) ([]model.SeatDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT s.id, s.seat_number, s.user_id, s.remark, s.occupied_at,
		        u.id, u.nickname, u.mobile
		 FROM activity_seats s
		 LEFT JOIN users u ON u.id = s.user_id
		 WHERE s.activity_id=?
		 ORDER BY s.seat_number ASC`,
		activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]model.SeatDetail, 0)
	for rows.Next() {
		var d model.SeatDetail
		var holderID *uint64
		var seatUserID *uint64
		var nickname, mobile *string
		if err := rows.Scan(&d.ID, &d.SeatNumber, &seatUserID, &d.Remark, &d.OccupiedAt,
			&holderID, &nickname, &mobile); err != nil {
			return nil, err
		}
		d.IsOccupied = seatUserID != nil
		if d.IsOccupied && holderID != nil {
			d.User = &model.SeatHolder{ID: *holderID, Nickname: nickname, Mobile: mobile}
		}
		seats = append(seats, d)
	}
	return seats, rows.Err()
}
