package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ActivityHandler serves the public browse side: the paginated listing
// and the per-activity detail with its seat map.
type ActivityHandler struct {
	Activities ActivityStore
	Seats      SeatStore
}

func NewActivityHandler(activities ActivityStore, seats SeatStore) *ActivityHandler {
	return &ActivityHandler{Activities: activities, Seats: seats}
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// List returns one page of activities with occupancy counts. Admins see
// every status; everyone else sees published activities only. Anonymous
// access is allowed.
func (h *ActivityHandler) List(c echo.Context) error {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(c, "limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := (page - 1) * limit

	ident, _ := currentIdentity(c)
	onlyPublished := !ident.IsAdmin

	activities, total, err := h.Activities.List(c.Request().Context(), onlyPublished, limit, offset)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"activities": activities,
		"pagination": echo.Map{
			"page":    page,
			"limit":   limit,
			"total":   total,
			"hasMore": offset+len(activities) < total,
		},
	})
}

// Detail returns one activity and every seat in seat-number order. Free
// seats carry user=null; the seat map is always read live, never cached.
func (h *ActivityHandler) Detail(c echo.Context) error {
	if _, ok := requireUser(c); !ok {
		return nil
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid activity id"})
	}

	ctx := c.Request().Context()
	activity, err := h.Activities.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	seats, err := h.Seats.ListByActivity(ctx, id)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"activity": activity,
		"seats":    seats,
	})
}

func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
