// internal/app/features/account/handler.go
package account

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/auth"
	"github.com/dalemusser/teamhub/internal/app/system/httpjson"
	"github.com/dalemusser/teamhub/internal/app/system/ratelimit"
	"github.com/dalemusser/teamhub/internal/app/system/timeouts"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves registration, login, and the current-user lookup.
type Handler struct {
	Users   *userstore.Store
	Tokens  *auth.TokenService
	Limiter *ratelimit.AuthLimiter
	Log     *zap.Logger
}

func NewHandler(users *userstore.Store, tokens *auth.TokenService, limiter *ratelimit.AuthLimiter, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Tokens: tokens, Limiter: limiter, Log: logger}
}

type credentials struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

func (c credentials) validate(register bool) error {
	var fields []apperr.FieldError
	username := strings.TrimSpace(c.Username)
	switch {
	case username == "":
		fields = append(fields, apperr.FieldError{Field: "username", Message: "is required"})
	case register && (utf8.RuneCountInString(username) < 3 || utf8.RuneCountInString(username) > 32):
		fields = append(fields, apperr.FieldError{Field: "username", Message: "must be 3 to 32 characters"})
	case register && strings.ContainsAny(username, " \t\n"):
		fields = append(fields, apperr.FieldError{Field: "username", Message: "must not contain spaces"})
	}
	if register && strings.TrimSpace(c.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "is required"})
	}
	switch {
	case c.Password == "":
		fields = append(fields, apperr.FieldError{Field: "password", Message: "is required"})
	case register && len(c.Password) < auth.MinPasswordLength:
		fields = append(fields, apperr.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if ok, reason := h.Limiter.Check(r, in.Username); !ok {
		apperr.Write(w, h.Log, apperr.RateLimited(reason))
		return
	}
	if err := in.validate(true); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("hash password", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{Name: in.Name, Username: in.Username, PasswordHash: hash})
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
	h.issue(w, http.StatusCreated, u)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpjson.Decode(w, r, &in); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if ok, reason := h.Limiter.Check(r, in.Username); !ok {
		h.Log.Warn("login throttled", zap.String("ip", ratelimit.ClientIP(r)))
		apperr.Write(w, h.Log, apperr.RateLimited(reason))
		return
	}
	if err := in.validate(false); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			apperr.Write(w, h.Log, apperr.Unauthorized("invalid username or password"))
			return
		}
		apperr.Write(w, h.Log, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		apperr.Write(w, h.Log, apperr.Unauthorized("invalid username or password"))
		return
	}
	h.Limiter.ResetAccount(in.Username)
	h.issue(w, http.StatusOK, *u)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cu, ok := auth.CurrentUser(r)
	if !ok {
		apperr.Write(w, h.Log, apperr.Unauthorized("authentication required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	httpjson.OK(w, u)
}

func (h *Handler) issue(w http.ResponseWriter, status int, u models.User) {
	token, exp, err := h.Tokens.Issue(u.ID, u.Username)
	if err != nil {
		apperr.Write(w, h.Log, apperr.Internal("issue token", err))
		return
	}
	httpjson.Write(w, status, tokenResponse{Token: token, ExpiresAt: exp, User: u})
}
