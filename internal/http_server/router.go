package httpserver

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"music_auth/internal/auth"
	changePassword "music_auth/internal/http_server/handlers/change_password"
	"music_auth/internal/http_server/handlers/login"
	"music_auth/internal/http_server/handlers/register"
	"music_auth/internal/http_server/handlers/user"
	"music_auth/internal/middleware/authn"
	rateLimit "music_auth/internal/middleware/ratelimit"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
)

type Options struct {
	// AllowedOrigins are the browser origins of the web client.
	AllowedOrigins []string
	// DisableRateLimit turns off the per-IP limits.
	DisableRateLimit bool
}

func NewRouter(log *slog.Logger, authService *auth.Auth, opts Options) *chi.Mux {
	validate := newValidator()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	limit := func(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
		if opts.DisableRateLimit {
			return nil
		}
		return []func(http.Handler) http.Handler{mw}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit(rateLimit.Register())...).Post("/register",
			register.New(log, validate, authService),
		)
		r.With(limit(rateLimit.Login())...).Post("/login",
			login.New(log, validate, authService),
		)
		r.With(limit(rateLimit.User())...).Get("/user",
			user.New(log, authService),
		)
		r.With(append(limit(rateLimit.ChangePassword()), authn.New(log, authService))...).Post("/change-password",
			changePassword.New(log, validate, authService),
		)
	})

	return r
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}
