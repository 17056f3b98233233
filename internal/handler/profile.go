package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProfileHandler serves the authenticated user's account settings.
type ProfileHandler struct {
	Users UserStore
}

func NewProfileHandler(users UserStore) *ProfileHandler {
	return &ProfileHandler{Users: users}
}

type updateProfileRequest struct {
	Nickname string `json:"nickname"`
}

// UpdateProfile changes the display name. Length is measured in runes so
// multi-byte names count as the characters the user sees.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if n := len([]rune(req.Nickname)); n < 1 || n > 20 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nickname must be 1-20 characters"})
	}
	user, err := h.Users.UpdateNickname(c.Request().Context(), ident.UserID, req.Nickname)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

// UnbindWeChat detaches the WeChat openid from the account. Rejected when
// the account has no password: unbinding would leave it unreachable.
func (h *ProfileHandler) UnbindWeChat(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	ctx := c.Request().Context()
	user, err := h.Users.GetByID(ctx, ident.UserID)
	if err != nil {
		return storeError(c, err)
	}
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if user.OpenID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no wechat account bound"})
	}
	if user.Password == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "set a password before unbinding wechat"})
	}
	user, err = h.Users.UnbindWeChat(ctx, ident.UserID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}
