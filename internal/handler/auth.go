package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hanyue/activity-seats/internal/utils"
)

// mobileRe matches mainland mobile numbers: 11 digits, starting 13-19.
var mobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

// AuthHandler serves registration, the two login flows and the current
// user endpoint. On every successful login path the identity is written
// into the auth_token cookie; the JSON body carries only the sanitized
// user profile.
type AuthHandler struct {
	Users        UserStore
	WeChat       CodeExchanger
	JWTSecret    string
	AuthTTLDays  int
	BcryptCost   int
	SecureCookie bool // true in prod: cookie sent over HTTPS only
}

func NewAuthHandler(users UserStore, wechat CodeExchanger, secret string, ttlDays, bcryptCost int, secure bool) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		WeChat:       wechat,
		JWTSecret:    secret,
		AuthTTLDays:  ttlDays,
		BcryptCost:   bcryptCost,
		SecureCookie: secure,
	}
}

// setAuthCookie issues the identity token and writes the httpOnly cookie.
// SameSite=Lax keeps the cookie on top-level navigations while blocking
// cross-site POSTs.
func (h *AuthHandler) setAuthCookie(c echo.Context, userID uint64, isAdmin bool) error {
	token, exp, err := utils.NewAuthToken(h.JWTSecret, userID, isAdmin, h.AuthTTLDays)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp) / time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type registerRequest struct {
	Mobile   string  `json:"mobile"`
	Password string  `json:"password"`
	Nickname *string `json:"nickname"`
}

// Register creates a mobile+password account and logs the new user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !mobileRe.MatchString(req.Mobile) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid mobile number"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}
	if req.Nickname != nil && (*req.Nickname == "" || len([]rune(*req.Nickname)) > 20) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nickname must be 1-20 characters"})
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not hash password"})
	}
	user, err := h.Users.Create(c.Request().Context(), req.Mobile, hash, req.Nickname)
	if err != nil {
		return storeError(c, err)
	}
	if err := h.setAuthCookie(c, user.ID, user.IsAdmin); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": user.Profile()})
}

type loginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// Login authenticates mobile+password. Unknown mobile, missing password
// hash (WeChat-only account) and wrong password all produce the same 401
// so the response does not reveal which part was wrong.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Mobile == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mobile and password are required"})
	}

	user, err := h.Users.GetByMobile(c.Request().Context(), req.Mobile)
	if err != nil {
		return storeError(c, err)
	}
	if user == nil || user.Password == nil || !utils.VerifyPassword(*user.Password, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "mobile or password incorrect"})
	}
	if err := h.setAuthCookie(c, user.ID, user.IsAdmin); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

type wechatLoginRequest struct {
	Code string `json:"code"`
}

// WeChatLogin performs silent login: the client-supplied OAuth code is
// exchanged for an openid, and a fresh account is created on first sight
// with a default nickname derived from the openid tail.
func (h *AuthHandler) WeChatLogin(c echo.Context) error {
	var req wechatLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if h.WeChat == nil || !h.WeChat.Configured() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "wechat login is not configured"})
	}

	ctx := c.Request().Context()
	openid, err := h.WeChat.ExchangeCode(ctx, req.Code)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "wechat authorization failed"})
	}

	user, err := h.Users.GetByOpenID(ctx, openid)
	if err != nil {
		return storeError(c, err)
	}
	if user == nil {
		nickname := "wechat_" + tail(openid, 4)
		user, err = h.Users.CreateWeChat(ctx, openid, nickname)
		if err != nil {
			return storeError(c, err)
		}
	}
	if err := h.setAuthCookie(c, user.ID, user.IsAdmin); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

// Me returns the caller's fresh profile from the database, not the cookie
// claims: admin status or nickname changes become visible immediately.
func (h *AuthHandler) Me(c echo.Context) error {
	ident, ok := requireUser(c)
	if !ok {
		return nil
	}
	user, err := h.Users.GetByID(c.Request().Context(), ident.UserID)
	if err != nil {
		return storeError(c, err)
	}
	if user == nil {
		// valid token for a deleted account
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
