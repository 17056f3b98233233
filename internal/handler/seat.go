package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SeatHandler serves the three seat mutations. Contention resolution
// lives entirely in the seat store's conditional updates; this layer
// validates input and translates sentinel errors into status codes. A
// lost claim comes back as 409 and is returned to the client as-is;
// never retried here, the client picks another seat.
type SeatHandler struct {
	Seats SeatStore
}

func NewSeatHandler(seats SeatStore) *SeatHandler {
	return &SeatHandler{Seats: seats}
}

type occupyRequest struct {
	ActivityID uint64  `json:"activityId"`
	SeatNumber uint32  `json:"seatNumber"`
	Remark     *string `json:"remark"`
}

// Occupy claims a seat for the caller.
func (h *SeatHandler) Occupy(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req occupyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ActivityID == 0 || req.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "activityId and seatNumber are required"})
	}

	seat, err := h.Seats.Occupy(c.Request().Context(), req.ActivityID, req.SeatNumber, ident.UserID, req.Remark)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

type releaseRequest struct {
	ActivityID uint64 `json:"activityId"`
	SeatNumber uint32 `json:"seatNumber"`
}

// Release frees the caller's seat. Releasing a seat the caller does not
// hold (free, foreign-held or nonexistent) fails with one merged 400.
func (h *SeatHandler) Release(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req releaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ActivityID == 0 || req.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "activityId and seatNumber are required"})
	}

	if err := h.Seats.Release(c.Request().Context(), req.ActivityID, req.SeatNumber, ident.UserID); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type updateRemarkRequest struct {
	ActivityID uint64 `json:"activityId"`
	SeatNumber uint32 `json:"seatNumber"`
	Remark     string `json:"remark"`
}

// UpdateRemark changes the remark on the caller's seat; 403 otherwise.
func (h *SeatHandler) UpdateRemark(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req updateRemarkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ActivityID == 0 || req.SeatNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "activityId and seatNumber are required"})
	}

	if err := h.Seats.UpdateRemark(c.Request().Context(), req.ActivityID, req.SeatNumber, ident.UserID, req.Remark); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
