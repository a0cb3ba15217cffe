// Package gemini はGoogle Gemini APIを使用したテキスト生成クライアントを提供します。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"lumina_backend/internal/feature/assistant/usecase"
	"lumina_backend/internal/platform/metrics"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"

	breakerName = "gemini"
)

// ErrUnavailable は生成クライアントが構成されていないことを示します。
var ErrUnavailable = errors.New("text generation is not configured")

// Config はGeminiクライアントの設定です。
type Config struct {
	APIKey  string       // 空の場合はADC（Vertex AI）を使用
	Model   string       // 空の場合はDefaultModel
	BaseURL string       // テスト用のエンドポイント上書き
	HTTP    *http.Client // nilの場合はSDKのデフォルト
}

// Client はGoogle Gemini APIを使用してテキストを生成します。
// 連続した失敗でサーキットが開くと、APIを呼ばずに即座にエラーを返します。
type Client struct {
	client *genai.Client
	model  string
	cb     *gobreaker.CircuitBreaker[string]
}

// ClientがTextGeneratorを実装していることをコンパイル時に検証します。
var _ usecase.TextGenerator = (*Client)(nil)

// NewClient はClientの新しいインスタンスを生成します。
// APIKeyが空の場合、環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{HTTPClient: cfg.HTTP}
	if cfg.APIKey != "" {
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{client: client, model: model, cb: newBreaker()}, nil
}

// newBreaker はGemini呼び出し用のサーキットブレーカーを生成します。
// 直近1分間で5回以上呼び出し、かつ半数以上失敗した場合に30秒間サーキットを開きます。
func newBreaker() *gobreaker.CircuitBreaker[string] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

// Generate はプロンプトと温度を指定してテキストを生成します。
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return c.cb.Execute(func() (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
		})
		if err != nil {
			return "", fmt.Errorf("gemini API request failed: %w", err)
		}
		return resp.Text(), nil
	})
}

// unavailable は生成クライアントを構成できなかった場合に使う実装で、常に失敗します。
type unavailable struct{}

// Unavailable は常にErrUnavailableを返すTextGeneratorを返します。
func Unavailable() usecase.TextGenerator {
	return unavailable{}
}

func (unavailable) Generate(context.Context, string, float32) (string, error) {
	return "", ErrUnavailable
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
