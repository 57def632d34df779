package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"videotube/internal/model"
	"videotube/pkg/apierror"
)

// AccessTokenCookie is read before the Authorization header.
const AccessTokenCookie = "accessToken"

type authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

type contextKey string

const authUserContextKey contextKey = "auth_user"

type AuthMiddleware struct {
	authenticator authenticator
}

func NewAuthMiddleware(authenticator authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticator.Authenticate(r.Context(), AccessTokenFromRequest(r))
		if err != nil {
			var apiErr *apierror.APIError
			if errors.As(err, &apiErr) {
				if apiErr.Err != nil {
					slog.Error("authentication dependency failure", "error", apiErr.Err)
				}
				writeJSONError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
				return
			}
			slog.Error("authentication failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// AccessTokenFromRequest returns the accessToken cookie, or else the bearer
// token from the Authorization header, or "".
func AccessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	return ""
}

func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(authUserContextKey).(model.User)
	return user, ok
}
