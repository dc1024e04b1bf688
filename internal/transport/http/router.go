package http

import (
	"net/http"

	"github.com/barter-api/internal/application/auth"
	"github.com/barter-api/internal/application/session"
	"github.com/barter-api/internal/config"
	"github.com/barter-api/internal/transport/http/handler"
	appmiddleware "github.com/barter-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to endpoints that dispatch
	// email or probe credentials.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenExpiry,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		OTPStore:   deps.OTPStore,
		UserRepo:   deps.UserRepo,
		Mailer:     deps.Mailer,
		SMSSender:  deps.SMSSender,
		Avatars:    deps.S3Store,
		Sessions:   sessionSvc,
		BcryptCost: cfg.BcryptCost,
	})

	healthH := handler.NewHealthHandler()
	registerH := handler.NewRegisterHandler(authSvc)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(deps.UserRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/auth/register/send", registerH.Send)
		r.Post("/auth/register/verify", registerH.Verify)
		r.With(sensitiveRL.Limit).Post("/auth/register/resend", registerH.Resend)

		r.With(sensitiveRL.Limit).Post("/auth/password-recovery/send", pwH.Send)
		r.Post("/auth/password-recovery/verify", pwH.Verify)
		r.Post("/auth/password-recovery/complete", pwH.Complete)

		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Get("/users/{id}", userH.Get)
		})
	})

	return r
}
