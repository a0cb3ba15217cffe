package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "lumina_backend/internal/feature/auth/transport/handler"
	journalhandler "lumina_backend/internal/feature/journal/transport/handler"
	platformhandler "lumina_backend/internal/platform/http/handler"
	jwtmw "lumina_backend/internal/platform/jwt"
	"lumina_backend/internal/platform/logger"
	"lumina_backend/internal/platform/metrics"
)

// Deps はルーター構築に必要なハンドラーと設定です。
type Deps struct {
	Auth      *authhandler.AuthHandler
	Journal   *journalhandler.JournalHandler
	Sessions  jwtmw.SessionResolver
	JWTSecret string
	// 空の場合はすべてのオリジンを許可
	CORSOrigins []string
	// /readyz の必須・任意チェック
	Required map[string]platformhandler.Check
	Optional map[string]platformhandler.Check
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(), metrics.GinMiddleware())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	// 認証不要
	// 導通確認用
	r.GET("/healthz", platformhandler.Health)
	r.HEAD("/healthz", platformhandler.Health)
	r.OPTIONS("/healthz", platformhandler.Health)
	r.GET("/readyz", platformhandler.Readiness(d.Required, d.Optional))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// 選択可能な気分の一覧
	r.GET("/moods", journalhandler.Moods)
	// 新規ユーザー登録
	r.POST("/signup", d.Auth.Signup)
	// ログイン（JWT 発行）
	r.POST("/login", d.Auth.Login)
	// リフレッシュトークンのローテーション
	r.POST("/refresh", d.Auth.Refresh)

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になり、セッションが有効である必要がある
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(d.JWTSecret, d.Sessions))
	{
		auth.POST("/logout", d.Auth.Logout)
		auth.POST("/logout/all", d.Auth.LogoutAll)
		auth.GET("/me", d.Auth.Me)

		auth.GET("/dashboard", d.Journal.Dashboard)
		auth.GET("/prompt", d.Journal.DailyPrompt)
		auth.POST("/reflections", d.Journal.Reflect)

		auth.GET("/entries", d.Journal.ListEntries)
		auth.POST("/entries", d.Journal.CreateEntry)
		auth.GET("/entries/:id", d.Journal.GetEntry)
		auth.PUT("/entries/:id", d.Journal.UpdateEntry)
		auth.DELETE("/entries/:id", d.Journal.DeleteEntry)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.ExposeHeaders = []string{logger.RequestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
