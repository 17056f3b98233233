package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanyue/activity-seats/internal/model"
)

func newJSONContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asUser(c echo.Context, id uint64, admin bool) {
	c.Set("user_id", id)
	c.Set("is_admin", admin)
}

func TestOccupyRequiresAuth(t *testing.T) {
	h := NewSeatHandler(newFakeSeatStore())
	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)

	require.NoError(t, h.Occupy(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOccupySuccess(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 3)
	h := NewSeatHandler(seats)

	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":2,"remark":"front row"}`)
	asUser(c, 7, false)

	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Seat model.ActivitySeat `json:"seat"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint32(2), resp.Seat.SeatNumber)
	require.NotNil(t, resp.Seat.UserID)
	assert.Equal(t, uint64(7), *resp.Seat.UserID)
	require.NotNil(t, resp.Seat.Remark)
	assert.Equal(t, "front row", *resp.Seat.Remark)
	assert.NotNil(t, resp.Seat.OccupiedAt)
}

func TestOccupyStatusMapping(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 2)
	seats.addActivity(2, model.StatusCancelled, 2)
	h := NewSeatHandler(seats)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"unknown activity", `{"activityId":99,"seatNumber":1}`, http.StatusNotFound},
		{"activity not published", `{"activityId":2,"seatNumber":1}`, http.StatusBadRequest},
		{"unknown seat number", `{"activityId":1,"seatNumber":50}`, http.StatusConflict},
		{"missing params", `{"activityId":1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy", tc.body)
			asUser(c, 7, false)
			require.NoError(t, h.Occupy(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestOccupyConflictWhenSeatTaken(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 3)
	h := NewSeatHandler(seats)

	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 2, false)
	require.NoError(t, h.Occupy(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOccupySecondSeatSameActivityRejected(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 3)
	h := NewSeatHandler(seats)

	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 5, false)
	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":2}`)
	asUser(c, 5, false)
	require.NoError(t, h.Occupy(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already holding seat 1")
}

// Concurrent claims on the same seat: exactly one wins, every loser gets
// 409. Distinct users so the already-held check cannot interfere.
func TestOccupyMutualExclusion(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 1)
	h := NewSeatHandler(seats)

	const callers = 32
	codes := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
				`{"activityId":1,"seatNumber":1}`)
			asUser(c, uint64(i+1), false)
			if err := h.Occupy(c); err != nil {
				t.Error(err)
				return
			}
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			winners++
		case http.StatusConflict:
			losers++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, losers)
}

func TestReleaseOnlyByHolder(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 2)
	h := NewSeatHandler(seats)

	// user 1 takes seat 1
	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// user 2 cannot release it
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/release",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 2, false)
	require.NoError(t, h.Release(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the holder can, exactly once
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/release",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Release(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	// second release by the same user fails: seat already free
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/release",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Release(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReleaseThenReoccupy(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 1)
	h := NewSeatHandler(seats)

	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/release",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Release(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// freed seat is claimable by someone else
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 2, false)
	require.NoError(t, h.Occupy(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateRemark(t *testing.T) {
	seats := newFakeSeatStore()
	seats.addActivity(1, model.StatusPublished, 2)
	h := NewSeatHandler(seats)

	c, rec := newJSONContext(t, http.MethodPost, "/api/activities/seats/occupy",
		`{"activityId":1,"seatNumber":1}`)
	asUser(c, 1, false)
	require.NoError(t, h.Occupy(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// not the holder -> 403
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/update-remark",
		`{"activityId":1,"seatNumber":1,"remark":"mine now"}`)
	asUser(c, 2, false)
	require.NoError(t, h.UpdateRemark(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// the holder -> ok
	c, rec = newJSONContext(t, http.MethodPost, "/api/activities/seats/update-remark",
		`{"activityId":1,"seatNumber":1,"remark":"bringing a friend"}`)
	asUser(c, 1, false)
	require.NoError(t, h.UpdateRemark(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
