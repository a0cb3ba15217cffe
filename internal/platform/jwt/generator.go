// Package jwtmw はアクセストークン(HS256 JWT)の発行・検証と、
// 認証必須ルート用のginミドルウェアを提供します。
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの署名・形式・有効期限のいずれかが不正な場合に返されます。
var ErrInvalidToken = errors.New("invalid token")

// Claims はアクセストークンに含まれるクレームです。
// Subjectにユーザー ID、sidにリフレッシュセッションIDを格納します。
type Claims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// generator はHMAC-SHA256で署名したアクセストークンを発行します。
type generator struct {
	secret     []byte
	expiration time.Duration
}

// NewGenerator は指定されたシークレットと有効期間でgeneratorを生成します。
func NewGenerator(secret string, expiration time.Duration) *generator {
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
	}
}

// Expiration はアクセストークンの有効期間を返します。
func (g *generator) Expiration() time.Duration {
	return g.expiration
}

// GenerateToken はユーザーとセッションに紐づく署名済みトークンを生成します。
func (g *generator) GenerateToken(userID, sessionID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken は署名と有効期限を検証し、クレームを返します。
// HMAC以外の署名方式、subやsidの欠落したトークンはErrInvalidTokenとして扱います。
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
