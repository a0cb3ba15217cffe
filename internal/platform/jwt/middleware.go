package jwtmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "userID"
	ContextSessionID = "sessionID"
)

// SessionResolver はセッションIDから現在サインイン中のユーザーIDを解決します。
// サインアウト済み・失効済みのセッションにはエラーを返します。
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (string, error)
}

// AuthRequired はアクセストークンを検証し、認証済みユーザーのみを通すginミドルウェアを返します。
// 署名が正しくても、トークンのセッションが既にサインアウトされていれば401を返します。
func AuthRequired(secret string, sessions SessionResolver) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		// 1. Authorizationヘッダーを取得
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		if len(key) == 0 {
			// サーバー設定不備(JWT_SECRET未設定)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		// 2. 署名と有効期限を検証
		claims, err := ParseToken(key, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3. セッションがまだ有効か確認
		userID, err := sessions.ResolveSession(c.Request.Context(), claims.SessionID)
		if err != nil || userID != claims.Subject {
			slog.Warn("session rejected", "session_id", claims.SessionID, "error", err, "remote_addr", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextSessionID, claims.SessionID)
		c.Next()
	}
}

// UserID は認証済みリクエストのユーザーIDを返します。
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// SessionID は認証済みリクエストのセッションIDを返します。
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
