package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the identity resolved from a bearer token and injected into
// r.Context(). It is the public identity used to enrich real-time events.
type SessionUser struct {
	ID       primitive.ObjectID
	Name     string
	Username string
}

// Public returns the fields other users may see.
func (u *SessionUser) Public() models.PublicUser {
	return models.PublicUser{ID: u.ID.Hex(), Name: u.Name, Username: u.Username}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return UserFromContext(r.Context())
}

// UserFromContext is CurrentUser for code that only has a context.
func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *SessionUser) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser injects u into the request, bypassing token verification.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Bearer middleware                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// Resolution failures, kept distinct so the socket handshake can report each.
var (
	ErrTokenMissing = errors.New("authentication token missing")
	ErrUserNotFound = errors.New("user not found")
	ErrTokenInvalid = errors.New("invalid authentication token")
)

// UserLookup is the slice of the user store the middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticator turns bearer credentials into a SessionUser.
type Authenticator struct {
	tokens *TokenService
	users  UserLookup
	log    *zap.Logger
}

func NewAuthenticator(tokens *TokenService, users UserLookup, log *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// Tokens exposes the token service for login handlers.
func (a *Authenticator) Tokens() *TokenService { return a.tokens }

// Resolve verifies token and loads its user. The returned error is one of
// ErrTokenMissing, ErrTokenInvalid, ErrUserNotFound, or a store failure.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*SessionUser, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &SessionUser{ID: u.ID, Name: u.Name, Username: u.Username}, nil
}

// RequireBearer admits only requests carrying a valid token for an existing
// user, answering 401 otherwise.
func (a *Authenticator) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := a.Resolve(r.Context(), BearerToken(r))
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrUserNotFound):
				apperr.Write(w, a.log, apperr.Unauthorized(err.Error()))
			default:
				apperr.Write(w, a.log, apperr.Internal("resolve bearer user", err))
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// BearerToken extracts a credential from, in order, the Authorization header,
// the "token" query parameter, or a "bearer, <token>" websocket subprotocol.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	for _, hdr := range r.Header.Values("Sec-WebSocket-Protocol") {
		parts := strings.Split(hdr, ",")
		for i := 0; i+1 < len(parts); i++ {
			if strings.EqualFold(strings.TrimSpace(parts[i]), "bearer") {
				return strings.TrimSpace(parts[i+1])
			}
		}
	}
	return ""
}
