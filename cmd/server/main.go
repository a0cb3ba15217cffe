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

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"lumina_backend/internal/app/di"
	"lumina_backend/internal/app/router"
	authadapters "lumina_backend/internal/feature/auth/adapters"
	"lumina_backend/internal/feature/auth/identity"
	authhandler "lumina_backend/internal/feature/auth/transport/handler"
	authusecase "lumina_backend/internal/feature/auth/usecase"
	journalhandler "lumina_backend/internal/feature/journal/transport/handler"
	journalusecase "lumina_backend/internal/feature/journal/usecase"
	"lumina_backend/internal/platform/config"
	infradb "lumina_backend/internal/platform/db"
	platformhandler "lumina_backend/internal/platform/http/handler"
	jwtmw "lumina_backend/internal/platform/jwt"
	"lumina_backend/internal/platform/logger"
	infraredis "lumina_backend/internal/platform/redis"
	"lumina_backend/internal/platform/validation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.Open(cfg.DB)
	if err != nil {
		return err
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}()
	}

	if err := validation.Register(); err != nil {
		return err
	}

	// Repository
	userRepo := authadapters.NewUserRepository(db)
	sessionRepo := di.NewSessionRepository(rdb, db)
	entryRepo := di.NewEntryRepository(db, rdb, cfg.Redis.EntryTTL)

	// Usecase
	tokens := jwtmw.NewGenerator(cfg.JWT.Secret, cfg.JWT.AccessTTL)
	authUC := authusecase.NewAuthUsecase(userRepo, sessionRepo, tokens, cfg.JWT.RefreshTTL)
	bridge := identity.NewBridge(authUC, cfg.Identity.MaxAge)
	defer bridge.Close()
	journalUC := journalusecase.NewJournalUsecase(entryRepo, di.NewAssistant(ctx, cfg.Assistant))

	// ルータ生成
	r := router.NewRouter(router.Deps{
		Auth:        authhandler.NewAuthHandler(authUC, bridge),
		Journal:     journalhandler.NewJournalHandler(journalUC),
		Sessions:    bridge,
		JWTSecret:   cfg.JWT.Secret,
		CORSOrigins: cfg.Server.CORSOrigins,
		Required:    readinessChecks(db, nil),
		Optional:    readinessChecks(nil, rdb),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeSessions(gctx, authUC, bridge.Holder(), cfg.Identity.PurgeInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("HTTP server stopped gracefully")
	return nil
}

type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type holderSweeper interface {
	Sweep() int
}

// purgeSessions は期限切れセッションをストアとブリッジの保持分の両方から定期的に削除します。
// ctxがキャンセルされるまで戻りません。
func purgeSessions(ctx context.Context, uc sessionPurger, holder holderSweeper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept := holder.Sweep(); swept > 0 {
				slog.Debug("expired sessions released", "count", swept)
			}
			n, err := uc.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}

func readinessChecks(db *gorm.DB, rdb *redisv9.Client) map[string]platformhandler.Check {
	checks := map[string]platformhandler.Check{}
	if db != nil {
		checks["db"] = func(ctx context.Context) error { return infradb.Ping(ctx, db) }
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
