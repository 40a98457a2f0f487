package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"music_auth/internal/auth"
	resp "music_auth/internal/lib/api/response"
	sl "music_auth/internal/lib/logger/sl"
	"music_auth/internal/middleware/authn"
	"music_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type ProfileProvider interface {
	WhoAmI(ctx context.Context, token string) (models.PublicAccount, error)
}

// New serves the profile of the bearer token's account.
func New(log *slog.Logger, provider ProfileProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token, ok := authn.BearerToken(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error(authn.MsgNoToken))

			return
		}

		profile, err := provider.WhoAmI(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				log.Info("rejected token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(authn.MsgInvalidToken))

				return
			}

			log.Error("failed to load profile", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, profile)
	}
}
