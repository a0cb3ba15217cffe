// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// HTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
func Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Check は依存先1つ分の疎通確認です。
type Check func(ctx context.Context) error

// readinessTimeout は各チェックの上限時間です。
const readinessTimeout = 2 * time.Second

// Readiness は /readyz を処理します。必須チェックが1つでも失敗すると503を返します。
// optionalのチェック失敗は "degraded" として報告されますが200のままです。
func Readiness(required, optional map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		status := http.StatusOK
		results := gin.H{}
		run := func(name string, check Check) error {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				return err
			}
			results[name] = "ok"
			return nil
		}

		for name, check := range required {
			if err := run(name, check); err != nil {
				results[name] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		for name, check := range optional {
			if err := run(name, check); err != nil {
				results[name] = "degraded"
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "unavailable"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
