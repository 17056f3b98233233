package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*SeatRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSeatRepo(db), mock
}

const (
	statusQuery  = `SELECT status FROM activities WHERE id=\?`
	advisoryRead = `SELECT seat_number FROM activity_seats WHERE activity_id=\? AND user_id=\?$`
	claimUpdate  = `UPDATE activity_seats\s+SET user_id=\?, remark=\?, occupied_at=\?\s+WHERE activity_id=\? AND seat_number=\? AND user_id IS NULL`
	lockingRead  = `SELECT seat_number FROM activity_seats WHERE activity_id=\? AND user_id=\? FOR UPDATE`
	seatReadback = `SELECT id, activity_id, seat_number, user_id, remark, occupied_at FROM activity_seats WHERE activity_id=\? AND seat_number=\?`
)

func TestOccupyCommitsAfterSingleSeatRecheck(t *testing.T) {
	repo, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(statusQuery).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("published"))
	mock.ExpectQuery(advisoryRead).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec(claimUpdate).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockingRead).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(2))
	mock.ExpectQuery(seatReadback).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "activity_id", "seat_number", "user_id", "remark", "occupied_at"}).
			AddRow(12, 1, 2, 7, nil, now))
	mock.ExpectCommit()

	seat, err := repo.Occupy(context.Background(), 1, 2, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), seat.SeatNumber)
	require.NotNil(t, seat.UserID)
	assert.Equal(t, uint64(7), *seat.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Two concurrent claims by the same user on different seats each pass the
// advisory snapshot read and each win their per-seat conditional update;
// only the locking re-check can catch the second seat. When it reports
// two held seats the transaction must roll back with the other seat's
// number, leaving the user on one seat.
func TestOccupyRollsBackWhenUserWouldHoldTwoSeats(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(statusQuery).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("published"))
	mock.ExpectQuery(advisoryRead).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec(claimUpdate).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockingRead).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(2).AddRow(5))
	mock.ExpectRollback()

	_, err := repo.Occupy(context.Background(), 1, 2, 7, nil)
	var held *AlreadyHeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, uint32(5), held.SeatNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupyLosesClaimRace(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(statusQuery).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("published"))
	mock.ExpectQuery(advisoryRead).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec(claimUpdate).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Occupy(context.Background(), 1, 2, 7, nil)
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
