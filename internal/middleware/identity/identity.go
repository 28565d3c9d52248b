package identity

import (
	"context"
	"log/slog"
	"net/http"

	"notes_service/internal/lib/api/response"
	"notes_service/internal/lib/jwt"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type ctxKey struct{}

// New привязывает субъекта валидного access токена к контексту запроса.
// Middleware никогда не отклоняет запрос: без валидного токена запрос
// просто идет дальше анонимным. Требование аутентификации задается
// на уровне маршрутов через Require.
func New(log *slog.Logger, tokens *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(header)
			if err != nil || claims.Type != jwt.TypeAccess {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				log.Warn("access token with malformed subject")
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require отклоняет анонимные запросы. Ставится на маршруты,
// которым нужен владелец.
func Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserID(r.Context()); !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}
