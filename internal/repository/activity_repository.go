package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hanyue/activity-seats/internal/model"
)

// ActivityRepo provides access to the `activities` table and owns every
// change to an activity's seat count. Creating an activity and resizing
// its capacity both run in a single transaction spanning the activity row
// and its seat rows, so no reader ever observes a partially seeded or
// partially resized activity.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// ActivityUpdate carries the mutable fields of an update request. Nil
// optional fields are written as NULL (description, end time) or left
// unchanged (capacity, status), matching the update endpoint semantics.
type ActivityUpdate struct {
	ID              uint64
	Title           string
	Description     *string
	StartTime       time.Time
	EndTime         *time.Time
	MaxParticipants *uint32
	Status          *string
}

// EvictedSeat identifies a holder displaced by a capacity shrink. The
// shrink itself is unconditional; these records only feed the eviction
// event hook.
type EvictedSeat struct {
	SeatNumber uint32
	UserID     uint64
}

const activityColumns = "id, title, description, start_time, end_time, max_participants, creator_id, status, created_at, updated_at"

// CreateWithSeats inserts the activity row and its full seat set
// (numbers 1..MaxParticipants, all free) in one transaction. The passed
// activity is populated with the stored row on success.
func (r *ActivityRepo) CreateWithSeats(ctx context.Context, a *model.Activity) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO activities (title, description, start_time, end_time, max_participants, creator_id, status)
		 VALUES (?,?,?,?,?,?,?)`,
		a.Title, a.Description, a.StartTime.UTC(), nullableTime(a.EndTime),
		a.MaxParticipants, a.CreatorID, model.StatusPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)

	if err := insertSeatsTx(ctx, tx, a.ID, 1, a.MaxParticipants); err != nil {
		return err
	}

	if err := scanActivityRow(tx.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=?", a.ID), a); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update applies field changes and, when the capacity changed, resizes
// the seat set in the same transaction. Growth appends free seats
// continuing from the old capacity; shrink deletes every seat above the
// new capacity regardless of holders and returns the displaced ones so
// the caller can emit eviction events after commit.
//
// Authorization is ownership: when the activity does not exist or belongs
// to a different creator, ErrActivityNotFound is returned (merged on
// purpose; admins cannot probe each other's activities).
func (r *ActivityRepo) Update(ctx context.Context, upd ActivityUpdate, callerID uint64) (*model.Activity, []EvictedSeat, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current model.Activity
	err = scanActivityRow(tx.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=? AND creator_id=?",
		upd.ID, callerID), &current)
	if err == sql.ErrNoRows {
		return nil, nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	newMax := current.MaxParticipants
	if upd.MaxParticipants != nil {
		newMax = *upd.MaxParticipants
	}
	status := current.Status
	if upd.Status != nil {
		status = *upd.Status
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE activities
		 SET title=?, description=?, start_time=?, end_time=?, max_participants=?, status=?, updated_at=NOW()
		 WHERE id=?`,
		upd.Title, upd.Description, upd.StartTime.UTC(), nullableTime(upd.EndTime),
		newMax, status, upd.ID); err != nil {
		return nil, nil, err
	}

	var evicted []EvictedSeat
	switch {
	case newMax > current.MaxParticipants:
		if err := insertSeatsTx(ctx, tx, upd.ID, current.MaxParticipants+1, newMax); err != nil {
			return nil, nil, err
		}
	case newMax < current.MaxParticipants:
		evicted, err = collectEvictedTx(ctx, tx, upd.ID, newMax)
		if err != nil {
			return nil, nil, err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM activity_seats WHERE activity_id=? AND seat_number>?",
			upd.ID, newMax); err != nil {
			return nil, nil, err
		}
	}

	var updated model.Activity
	if err := scanActivityRow(tx.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=?", upd.ID), &updated); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	return &updated, evicted, nil
}

// GetByID fetches one activity. Returns ErrActivityNotFound when absent.
func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (*model.Activity, error) {
	var a model.Activity
	err := scanActivityRow(r.DB.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id=?", id), &a)
	if err == sql.ErrNoRows {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByCreator returns all activities owned by an admin, newest first.
func (r *ActivityRepo) ListByCreator(ctx context.Context, creatorID uint64) ([]model.Activity, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE creator_id=? ORDER BY created_at DESC",
		creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Activity, 0)
	for rows.Next() {
		var a model.Activity
		if err := scanActivityRow(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns a page of activities with their occupied seat counts,
// ordered by start time descending, plus the total matching count for
// pagination. When onlyPublished is true (non-admin callers) the listing
// is filtered to published activities.
//
// The count is derived per row: COUNT over the seat join only counts
// non-NULL holder ids, so free seats contribute nothing.
func (r *ActivityRepo) List(ctx context.Context, onlyPublished bool, limit, offset int) ([]model.ActivitySummary, int, error) {
	where := ""
	args := []interface{}{}
	if onlyPublished {
		where = " WHERE a.status=?"
		args = append(args, model.StatusPublished)
	}

	query := `SELECT a.id, a.title, a.description, a.start_time, a.end_time, a.max_participants, a.status,
	                 COUNT(s.user_id) AS occupied_count
	          FROM activities a
	          LEFT JOIN activity_seats s ON s.activity_id = a.id` + where + `
	          GROUP BY a.id
	          ORDER BY a.start_time DESC
	          LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ActivitySummary, 0, limit)
	for rows.Next() {
		var s model.ActivitySummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.StartTime, &s.EndTime,
			&s.MaxParticipants, &s.Status, &s.OccupiedCount); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := "SELECT COUNT(*) FROM activities a" + where
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// insertSeatsTx bulk-inserts free seats numbered from..to (inclusive) for
// one activity inside an existing transaction.
func insertSeatsTx(ctx context.Context, tx *sql.Tx, activityID uint64, from, to uint32) error {
	if from > to {
		return nil
	}
	query := "INSERT INTO activity_seats (activity_id, seat_number) VALUES "
	args := make([]interface{}, 0, int(to-from+1)*2)
	for n := from; n <= to; n++ {
		if n > from {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, activityID, n)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// collectEvictedTx lists the holders of seats above the new capacity
// before those seats are deleted.
func collectEvictedTx(ctx context.Context, tx *sql.Tx, activityID uint64, newMax uint32) ([]EvictedSeat, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_number, user_id FROM activity_seats
		 WHERE activity_id=? AND seat_number>? AND user_id IS NOT NULL`,
		activityID, newMax)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evicted []EvictedSeat
	for rows.Next() {
		var e EvictedSeat
		if err := rows.Scan(&e.SeatNumber, &e.UserID); err != nil {
			return nil, err
		}
		evicted = append(evicted, e)
	}
	return evicted, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivityRow(row rowScanner, a *model.Activity) error {
	return row.Scan(&a.ID, &a.Title, &a.Description, &a.StartTime, &a.EndTime,
		&a.MaxParticipants, &a.CreatorID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
