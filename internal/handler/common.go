// Package handler contains the HTTP handlers. Each handler depends on a
// small store interface declared here rather than on a concrete
// repository, so protocol behavior (seat contention in particular) can be
// exercised against in-memory fakes in tests.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hanyue/activity-seats/internal/model"
	"github.com/hanyue/activity-seats/internal/repository"
	"github.com/hanyue/activity-seats/internal/utils"
)

// UserStore is the account storage surface used by auth and profile
// handlers. Lookups return (nil, nil) when no row matches.
type UserStore interface {
	Create(ctx context.Context, mobile, passwordHash string, nickname *string) (*model.User, error)
	CreateWeChat(ctx context.Context, openid, nickname string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByMobile(ctx context.Context, mobile string) (*model.User, error)
	GetByOpenID(ctx context.Context, openid string) (*model.User, error)
	UpdateNickname(ctx context.Context, id uint64, nickname string) (*model.User, error)
	UnbindWeChat(ctx context.Context, id uint64) (*model.User, error)
}

// ActivityStore is the activity registry surface. Creation and capacity
// resize are transactional on the implementation side.
type ActivityStore interface {
	CreateWithSeats(ctx context.Context, a *model.Activity) error
	Update(ctx context.Context, upd repository.ActivityUpdate, callerID uint64) (*model.Activity, []repository.EvictedSeat, error)
	GetByID(ctx context.Context, id uint64) (*model.Activity, error)
	ListByCreator(ctx context.Context, creatorID uint64) ([]model.Activity, error)
	List(ctx context.Context, onlyPublished bool, limit, offset int) ([]model.ActivitySummary, int, error)
}

// SeatStore is the seat ledger surface. Occupy and Release resolve
// contention atomically on the implementation side; handlers only map
// the sentinel errors to status codes.
type SeatStore interface {
	Occupy(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64, remark *string) (*model.ActivitySeat, error)
	Release(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64) error
	UpdateRemark(ctx context.Context, activityID uint64, seatNumber uint32, userID uint64, remark string) error
	ListByActivity(ctx context.Context, activityID uint64) ([]model.SeatDetail, error)
}

// CodeExchanger resolves a WeChat OAuth code to a stable openid.
type CodeExchanger interface {
	Configured() bool
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// currentIdentity reads the identity injected by middleware.CookieAuth.
// The second return is false for anonymous requests.
func currentIdentity(c echo.Context) (utils.Identity, bool) {
	id, ok := c.Get("user_id").(uint64)
	if !ok || id == 0 {
		return utils.Identity{}, false
	}
	admin, _ := c.Get("is_admin").(bool)
	return utils.Identity{UserID: id, IsAdmin: admin}, true
}

// requireUser rejects anonymous requests with 401. When it returns false
// the response has already been written and the handler must return nil.
func requireUser(c echo.Context) (utils.Identity, bool) {
	ident, ok := currentIdentity(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		return utils.Identity{}, false
	}
	return ident, true
}

// requireAdmin rejects anonymous requests with 401 and non-admins with
// 403, under the same contract as requireUser.
func requireAdmin(c echo.Context) (utils.Identity, bool) {
	ident, ok := requireUser(c)
	if !ok {
		return utils.Identity{}, false
	}
	if !ident.IsAdmin {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "admin privileges required"})
		return utils.Identity{}, false
	}
	return ident, true
}

// storeError maps repository sentinels to stable status codes. Anything
// unrecognized is logged and reported as a generic 500; internal details
// never reach the client.
func storeError(c echo.Context, err error) error {
	var held *repository.AlreadyHeldError
	switch {
	case errors.Is(err, repository.ErrActivityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrActivityNotOpen):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &held):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": held.Error()})
	case errors.Is(err, repository.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrSeatNotHeld):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrMobileExists):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		log.Printf("store error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
