package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// CORSConfig controls cross-origin access. An AllowedOrigins entry of "*" admits any
// origin; an empty list disables CORS handling.
type CORSConfig struct {
	AllowedOrigins []string      `env:"ORIGINS" envDefault:"*" envSeparator:","`
	AllowedMethods []string      `env:"METHODS" envDefault:"GET,POST,OPTIONS" envSeparator:","`
	AllowedHeaders []string      `env:"HEADERS" envDefault:"Accept,Content-Type,Authorization" envSeparator:","`
	MaxAge         time.Duration `env:"MAX_AGE" envDefault:"12h"`
}

// DefaultCORSConfig admits any origin with the headers browser clients send.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         12 * time.Hour,
	}
}

func corsMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	// cors treats an empty origin list as "*".
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
		MaxAge:         int(cfg.MaxAge.Seconds()),
	})
}
