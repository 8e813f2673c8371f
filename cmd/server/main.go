// main wires high-level dependencies and keeps the server lifecycle
// small. Business logic lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"authgate/internal/audit"
	auditmem "authgate/internal/audit/store/memory"
	auditpg "authgate/internal/audit/store/postgres"
	"authgate/internal/auth/lockout"
	"authgate/internal/auth/service"
	sessionstore "authgate/internal/auth/store/session"
	userstore "authgate/internal/auth/store/user"
	jwttoken "authgate/internal/jwt_token"
	"authgate/internal/platform/config"
	"authgate/internal/platform/httpserver"
	"authgate/internal/platform/logger"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/postgres"
	platformredis "authgate/internal/platform/redis"
	httptransport "authgate/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users      service.UserStore
		sessions   service.SessionStore
		purger     service.SessionPurger
		auditStore audit.Store
		health     []httptransport.HealthChecker
	)

	if cfg.DatabaseURL != "" {
		if err := postgres.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		users = userstore.NewPostgres(db)
		pgSessions := sessionstore.NewPostgres(db)
		sessions, purger = pgSessions, pgSessions
		auditStore = auditpg.New(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		users = userstore.New()
		memSessions := sessionstore.New()
		sessions, purger = memSessions, memSessions
		auditStore = auditmem.New()
	}

	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		redisSessions := sessionstore.NewRedis(rdb.Client)
		sessions, purger = redisSessions, redisSessions
		health = append(health, rdb)
	}

	m := metrics.New()
	publisher := audit.NewPublisher(log, audit.WithQueueCapacity(cfg.AuditQueueCapacity))
	m.ObserveAuditQueue(publisher.Pending, publisher.Dropped)
	worker := audit.NewWorker(publisher, auditStore, log)

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)

	svc, err := service.New(users, sessions, tokens,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
		service.WithLockoutPolicy(lockout.New(cfg.LockoutThreshold, cfg.LockoutDuration)),
		service.WithStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		return err
	}

	janitor := service.NewJanitor(purger, auditStore, log,
		service.WithSweepInterval(cfg.SweepInterval),
		service.WithSessionRetention(cfg.SessionRetention),
		service.WithAuditRetention(cfg.AuditRetention),
	)

	authHandler := httptransport.NewAuthHandler(svc, log)
	auditHandler := httptransport.NewAuditHandler(auditStore, svc, log)
	router := httptransport.NewRouter(log, authHandler, auditHandler, health...)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting authgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return janitor.Run(ctx) })

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
