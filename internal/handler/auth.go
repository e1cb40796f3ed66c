package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/config"
	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/utils"
)

// AuthUsers is the part of the user repository the auth endpoints need.
type AuthUsers interface {
	Create(ctx context.Context, nu repository.NewUser) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Activate(ctx context.Context, id uint64) error
}

// AuthTokens stores refresh token hashes.
type AuthTokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// OTPSender mails login codes.
type OTPSender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  AuthUsers
	Tokens AuthTokens
	Mail   OTPSender
	Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u AuthUsers, t AuthTokens, mail OTPSender) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Mail: mail, Now: time.Now}
}

// ----- DTOs -----

type signupReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type otpReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// issue creates and stores a new access/refresh pair for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// refuse answers for accounts that may not sign in, or returns nil.
func refuse(c echo.Context, u model.User) error {
	switch u.Status {
	case model.UserDisabled:
		return c.JSON(http.StatusLocked, echo.Map{"error": "account disabled"})
	case model.UserNotActivatedYet:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account not activated, sign in with a login code"})
	}
	return nil
}

// Signup creates a Customer account waiting for activation by login code.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "name and a valid email are required")
	}
	if req.Phone != nil {
		p := strings.TrimSpace(*req.Phone)
		if p == "" {
			req.Phone = nil
		} else {
			req.Phone = &p
		}
	}

	nu := repository.NewUser{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Role:   model.RoleCustomer,
		Status: model.UserNotActivatedYet,
	}
	if req.Password != nil && *req.Password != "" {
		if err := utils.CheckPassword(*req.Password); err != nil {
			return badRequest(c, err.Error())
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		nu.PasswordHash = &hash
	}
	secret, err := utils.NewOTPSecret(req.Email, h.Cfg.TOTPPeriod)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create otp secret failed"})
	}
	nu.OTPSecret = secret

	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := h.Users.Create(ctx, nu)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrPhoneExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "phone already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

// Login: verify the password and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.PasswordHash == nil || !utils.VerifyPassword(*u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := refuse(c, u); err != nil {
		return err
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// RequestOTP mails a login code.  The answer is the same whether or not the
// address is known.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := repository.NormalizeEmail(req.Email)
	if email == "" {
		return badRequest(c, "email required")
	}
	accepted := echo.Map{"status": "if the address is registered a code has been sent"}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("otp request: %v", err)
		}
		return c.JSON(http.StatusAccepted, accepted)
	}
	if u.OTPSecret == nil || u.Status == model.UserDisabled {
		return c.JSON(http.StatusAccepted, accepted)
	}
	code, err := utils.GenerateOTP(*u.OTPSecret, h.Cfg.TOTPPeriod, h.Now())
	if err != nil {
		log.Printf("otp request user %d: %v", u.ID, err)
		return c.JSON(http.StatusAccepted, accepted)
	}
	if err := h.Mail.SendOTP(ctx, u.Email, code); err != nil {
		log.Printf("otp mail to user %d: %v", u.ID, err)
	}
	return c.JSON(http.StatusAccepted, accepted)
}

// VerifyOTP signs in with a mailed code and activates new accounts.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email := repository.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return badRequest(c, "email/code required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.OTPSecret == nil || !utils.ValidateOTP(code, *u.OTPSecret, h.Cfg.TOTPPeriod, h.Now()) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid code"})
	}
	if u.Status == model.UserDisabled {
		return c.JSON(http.StatusLocked, echo.Map{"error": "account disabled"})
	}
	if u.Status == model.UserNotActivatedYet {
		if err := h.Users.Activate(ctx, u.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
		}
		u.Status = model.UserActive
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := withTimeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if u.Status == model.UserDisabled {
		return c.JSON(http.StatusLocked, echo.Map{"error": "account disabled"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token when given, otherwise every session of
// the bearer.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	var uid uint64
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid = claims.UserID
		}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	switch {
	case raw != "":
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	default:
		return badRequest(c, "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": middleware.UserFrom(c)})
}
