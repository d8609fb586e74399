package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options configures NewRouter. Engine is required.
type Options struct {
	Engine *authgate.Engine
	Logger *slog.Logger
	// CORS is disabled when CORS.AllowedOrigins is empty.
	CORS CORSConfig
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP. Enable
	// it only behind a proxy that sets those headers.
	TrustProxy bool
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
	// Health checks run by GET /healthz.
	Health        []Check
	HealthTimeout time.Duration
}

// NewRouter returns the HTTP surface for opts.Engine.
func NewRouter(opts Options) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	h := &handlers{engine: opts.Engine, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.ClientInfo)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware(opts.CORS))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "Method not allowed"})
	})

	r.Get("/healthz", healthHandler(log, opts.HealthTimeout, opts.Health...))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/auth", func(auth chi.Router) {
		auth.Get("/csrf-token", h.csrfToken)
		auth.Post("/signup", h.signup)
		auth.Post("/login", h.login)
		auth.Post("/forgot-password", h.forgotPassword)
		auth.Post("/reset-password", h.resetPassword)
		auth.Post("/send-verification-token", h.sendVerificationToken)
		auth.Post("/verify-token", h.verifyToken)
		auth.Post("/logout", h.logout)
		auth.With(middleware.Guard(opts.Engine)).Get("/me", h.me)
	})

	return r
}
