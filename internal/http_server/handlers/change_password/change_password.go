package changePassword

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
	"music_auth/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const MsgPasswordUpdated = "Password updated successfully"

// Bounds on the new password, checked by the service.
var (
	MsgPasswordTooShort = fmt.Sprintf("New password must be at least %d characters", auth.MinPasswordLength)
	MsgPasswordTooLong  = fmt.Sprintf("New password must be at most %d bytes", password.MaxLength)
)

// Length is checked by the service, after the current password.
type Request struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, accountID uuid.UUID, currentPass, newPass string) error
}

// New must be mounted behind authn.New.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	changer PasswordChanger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.changePassword.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		accountID, ok := authn.AccountID(r.Context())
		if !ok {
			log.Error("handler mounted without authn middleware")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error(authn.MsgNoToken))

			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

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

		err := changer.ChangePassword(ctx, accountID, req.CurrentPassword, req.NewPassword)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInvalidCredentials):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid credentials"))

			return
		case errors.Is(err, auth.ErrPasswordTooShort):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(MsgPasswordTooShort))

			return
		case errors.Is(err, auth.ErrPasswordTooLong):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(MsgPasswordTooLong))

			return
		case errors.Is(err, auth.ErrInvalidInput):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("New password is not valid"))

			return
		case errors.Is(err, auth.ErrAccountNotFound):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error(authn.MsgInvalidToken))

			return
		default:
			log.Error("failed to change password", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Password changed", slog.String("uid", accountID.String()))

		render.JSON(w, r, resp.Message(MsgPasswordUpdated))
	}
}
