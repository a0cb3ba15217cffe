package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"lumina_backend/internal/platform/config"
)

// ErrNotConfigured はRedisのホストが未設定の場合に返されます。
var ErrNotConfigured = errors.New("redis host is not configured")

// NewRedisClient は設定からRedisクライアントを生成し、接続を確認します。
// 接続できない場合、呼び出し元はキャッシュなしで動作を続けます。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := cfg.Addr()
	if addr == "" {
		return nil, ErrNotConfigured
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       0,
	})

	// 接続確認
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", addr, "error", err)
		_ = rdb.Close()
		return nil, err
	}

	slog.Info("Redis connection successful", "address", addr)
	return rdb, nil
}
