// Package authn guards protected routes with the session bearer token.
// Every protected request is re-verified here; nothing the client caches is
// trusted.
package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"music_auth/internal/auth"
	resp "music_auth/internal/lib/api/response"
	sl "music_auth/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const (
	MsgNoToken      = "No token, authorization denied"
	MsgInvalidToken = "Token is not valid"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

type ctxKey struct{}

func New(log *slog.Logger, authenticator Authenticator) func(http.Handler) http.Handler {
	log = log.With(slog.String("component", "middleware/authn"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

			token, ok := BearerToken(r)
			if !ok {
				log.Info("missing bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(MsgNoToken))

				return
			}

			accountID, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					log.Info("rejected bearer token", sl.Err(err))

					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, resp.Error(MsgInvalidToken))

					return
				}

				log.Error("failed to authenticate", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))

				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

// AccountID returns the account set by the middleware.
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}
