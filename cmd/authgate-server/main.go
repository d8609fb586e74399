// Command authgate-server serves the authgate HTTP API.
//
// Configuration comes from the environment, optionally seeded from a .env file:
// JWT_SECRET is required, STORE_DRIVER selects mongo (MONGODB_URL) or memory,
// CAPTCHA_PROVIDER and MAIL_PROVIDER select the collaborators, HTTP_ADDR the
// listener. See internal/bootstrap for the full list.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/httpapi"
	"github.com/MrEthical07/authgate/internal/bootstrap"
	"github.com/MrEthical07/authgate/internal/envconfig"
	"github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
)

type serverConfig struct {
	HTTP       httpapi.ServerConfig `envPrefix:"HTTP_"`
	BasePath   string               `env:"HTTP_BASE_PATH"`
	TrustProxy bool                 `env:"HTTP_TRUST_PROXY" envDefault:"false"`
	CORS       httpapi.CORSConfig   `envPrefix:"CORS_"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("authgate-server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, infra, err := bootstrap.Load()
	if err != nil {
		return err
	}
	var srvCfg serverConfig
	if err := envconfig.Load(&srvCfg); err != nil {
		return err
	}

	log := bootstrap.NewLogger(infra, "authgate-server")
	slog.SetDefault(log)
	for _, w := range cfg.Lint() {
		log.Warn("risky auth configuration", slog.String("code", w.Code), slog.String("detail", w.Message))
	}

	st, err := bootstrap.OpenStore(ctx, infra, cfg.Collections, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error("store close failed", slog.String("error", err.Error()))
		}
	}()

	rdb, closeRedis, err := bootstrap.OpenRedis(ctx, infra, cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	verifier, err := bootstrap.NewCaptcha(infra)
	if err != nil {
		return err
	}
	mailer, err := bootstrap.NewMailer(infra, log)
	if err != nil {
		return err
	}

	engine, err := bootstrap.Engine(cfg, st, rdb, verifier, mailer, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	go sweepCSRF(ctx, engine, cfg.CSRF.SweepInterval, log)

	checks := []httpapi.Check{st.Health}
	if rdb != nil {
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	opts := httpapi.Options{
		Engine:     engine,
		Logger:     log,
		CORS:       srvCfg.CORS,
		TrustProxy: srvCfg.TrustProxy,
		Health:     checks,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.NewPrometheusExporter(engine).Handler()
	}

	handler := httpapi.NewRouter(opts)
	if srvCfg.BasePath != "" {
		root := chi.NewRouter()
		root.Mount(srvCfg.BasePath, handler)
		handler = root
	}

	return httpapi.NewServer(srvCfg.HTTP, log).Run(ctx, handler)
}

// sweepCSRF flags expired CSRF records until ctx ends.
func sweepCSRF(ctx context.Context, engine *authgate.Engine, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := engine.SweepExpiredCSRF(ctx); err != nil {
				log.Warn("csrf sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
