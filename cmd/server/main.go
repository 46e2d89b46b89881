// cmd/server is the API and web entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/database"
	"github.com/Shivanand-hulikatti/spotlight/internal/handler"
	"github.com/Shivanand-hulikatti/spotlight/internal/logger"
	"github.com/Shivanand-hulikatti/spotlight/internal/metrics"
	"github.com/Shivanand-hulikatti/spotlight/internal/notify"
	"github.com/Shivanand-hulikatti/spotlight/internal/repository"
	"github.com/Shivanand-hulikatti/spotlight/internal/service"
	"github.com/Shivanand-hulikatti/spotlight/internal/web"
)

const sessionPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	log.Info("connected to PostgreSQL")

	// ── 2. Event notices ─────────────────────────────────────────────────
	var pub notify.Publisher = notify.Nop{}
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := notify.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, 5, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, event notices disabled")
		} else {
			defer amqpPub.Close()
			pub = amqpPub
		}
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	m := metrics.New()
	eventRepo := repository.NewEventRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	eventSvc := service.NewEventService(eventRepo, m, notify.NewNotifier(pub, log), log)
	authSvc := service.NewAuthService(userRepo, sessionRepo, cfg.Auth.SessionTTL, m, log)

	eventHandler := handler.NewEventHandler(eventSvc, log)
	authHandler := handler.NewAuthHandler(authSvc, cfg.Auth, log)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := handler.NewRouter(handler.RouterConfig{
		Events:      eventHandler,
		Auth:        authHandler,
		Metrics:     m,
		Log:         log,
		ServiceName: cfg.Server.ServiceName,
		Profiling:   cfg.Server.Profiling,
	})
	web.NewHandler(eventSvc, authSvc, authHandler, log).Register(r)

	go purgeSessions(ctx, sessionRepo, log)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		log.WithError(err).Fatal("server error")
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return
	}
	log.Info("server stopped")
}

func purgeSessions(ctx context.Context, sessions *repository.SessionRepository, log *logrus.Logger) {
	t := time.NewTicker(sessionPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purge expired sessions")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Info("purged expired sessions")
			}
		}
	}
}
