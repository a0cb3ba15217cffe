// Command maintenance は定期実行用のバッチです。
// スキーマのマイグレーションと期限切れセッションの削除を1回だけ実行して終了します。
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lumina_backend/internal/app/di"
	"lumina_backend/internal/platform/config"
	infradb "lumina_backend/internal/platform/db"
	"lumina_backend/internal/platform/logger"
	infraredis "lumina_backend/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("maintenance failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := infradb.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := infradb.Migrate(db); err != nil {
		return err
	}

	// Redisがなければセッションは DB 側にある
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, cfg.Redis); err == nil {
		rdb = tmp
		defer func() { _ = rdb.Close() }()
	}

	n, err := di.NewSessionRepository(rdb, db).DeleteExpired(ctx)
	if err != nil {
		return err
	}
	slog.Info("maintenance ok", "expired_sessions_deleted", n)
	return nil
}
