package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hanyue/activity-seats/internal/model"
	"github.com/hanyue/activity-seats/internal/queue"
	"github.com/hanyue/activity-seats/internal/repository"
	queue_publisher "github.com/hanyue/activity-seats/internal/service"
)

// AdminActivityHandler serves activity management for administrators.
// Publish is the eviction event sink; it defaults to the RabbitMQ
// publisher and is replaceable in tests.
type AdminActivityHandler struct {
	Activities ActivityStore
	Users      UserStore
	Publish    func(ctx context.Context, events []queue.SeatEvictedEvent) error
}

func NewAdminActivityHandler(activities ActivityStore, users UserStore) *AdminActivityHandler {
	return &AdminActivityHandler{
		Activities: activities,
		Users:      users,
		Publish:    queue_publisher.PublishSeatEvicted,
	}
}

type createActivityRequest struct {
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	MaxParticipants uint32     `json:"maxParticipants"`
}

// Create inserts a published activity together with its full seat set.
func (h *AdminActivityHandler) Create(c echo.Context) error {
	ident, ok := requireAdmin(c)
	if !ok {
		return nil
	}
	var req createActivityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.StartTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "startTime is required"})
	}
	if req.MaxParticipants < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "maxParticipants must be at least 1"})
	}
	if req.EndTime != nil && !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endTime must be after startTime"})
	}

	activity := &model.Activity{
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		CreatorID:       ident.UserID,
	}
	if err := h.Activities.CreateWithSeats(c.Request().Context(), activity); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"activity": activity})
}

type updateActivityRequest struct {
	ID              uint64     `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	MaxParticipants *uint32    `json:"maxParticipants"`
	Status          *string    `json:"status"`
}

// Update applies field changes; a capacity change resizes the seat set in
// the same transaction. Holders displaced by a shrink are reported to the
// event queue after commit, off the request path.
func (h *AdminActivityHandler) Update(c echo.Context) error {
	ident, ok := requireAdmin(c)
	if !ok {
		return nil
	}
	var req updateActivityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id is required"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.StartTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "startTime is required"})
	}
	if req.MaxParticipants != nil && *req.MaxParticipants < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "maxParticipants must be at least 1"})
	}
	if req.Status != nil {
		switch *req.Status {
		case model.StatusPublished, model.StatusCancelled, model.StatusCompleted:
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
	}

	activity, evicted, err := h.Activities.Update(c.Request().Context(), repository.ActivityUpdate{
		ID:              req.ID,
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Status:          req.Status,
	}, ident.UserID)
	if err != nil {
		return storeError(c, err)
	}

	if len(evicted) > 0 && h.Publish != nil {
		events := h.evictionEvents(c.Request().Context(), activity, evicted)
		go func() { _ = h.Publish(context.Background(), events) }()
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": activity})
}

// ListOwn returns every activity created by the caller, newest first.
func (h *AdminActivityHandler) ListOwn(c echo.Context) error {
	ident, ok := requireAdmin(c)
	if !ok {
		return nil
	}
	activities, err := h.Activities.ListByCreator(c.Request().Context(), ident.UserID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"activities": activities})
}

// evictionEvents enriches displaced holders with their nickname. The
// lookup is best effort; a failed read leaves the nickname empty rather
// than dropping the event.
func (h *AdminActivityHandler) evictionEvents(ctx context.Context, activity *model.Activity, evicted []repository.EvictedSeat) []queue.SeatEvictedEvent {
	now := time.Now().UTC().Format(time.RFC3339)
	events := make([]queue.SeatEvictedEvent, 0, len(evicted))
	for _, e := range evicted {
		ev := queue.SeatEvictedEvent{
			ActivityID:    activity.ID,
			ActivityTitle: activity.Title,
			SeatNumber:    e.SeatNumber,
			UserID:        e.UserID,
			EvictedAt:     now,
		}
		if u, err := h.Users.GetByID(ctx, e.UserID); err == nil && u != nil {
			ev.Nickname = u.Nickname
		}
		events = append(events, ev)
	}
	return events
}
