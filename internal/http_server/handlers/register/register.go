package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"music_auth/internal/auth"
	resp "music_auth/internal/lib/api/response"
	sl "music_auth/internal/lib/logger/sl"
	"music_auth/internal/lib/password"
	"music_auth/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// MsgPasswordTooLong is shown for passwords bcrypt would truncate.
var MsgPasswordTooLong = fmt.Sprintf("Password must be at most %d bytes", password.MaxLength)

type Request struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Pass     string `json:"password" validate:"required"`
}

type Registrar interface {
	Register(ctx context.Context, username, email, pass string) (models.Session, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	registrar Registrar,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		session, err := registrar.Register(ctx, req.Username, req.Email, req.Pass)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("User already exists"))
			case errors.Is(err, auth.ErrUsernameTaken):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Username is already taken"))
			case errors.Is(err, auth.ErrPasswordTooLong):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(MsgPasswordTooLong))
			case errors.Is(err, auth.ErrInvalidInput):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Username, email and password are required"))
			default:
				log.Error("failed to register user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User registered", slog.String("id", session.ID.String()))

		render.JSON(w, r, session)
	}
}
