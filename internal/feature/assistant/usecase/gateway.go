// Package usecase はassistantフィーチャー（AIによるプロンプト・振り返り生成）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lumina_backend/internal/platform/metrics"
)

const (
	// DailyPromptText は日替わりプロンプトを生成するための指示文です。
	DailyPromptText = "Give me one creative, deep, and inspiring journal prompt for today. Keep it short (max 20 words)."

	// ReflectionPromptTemplate はエントリへの振り返りを生成するための指示文です。
	ReflectionPromptTemplate = `You are a supportive, empathetic AI journal assistant.
Read this journal entry and provide a brief (2-3 sentence) supportive reflection or insight.
Avoid being clinical; be warm and encouraging.

Entry: "%s"`

	// PromptTemperature は多様性を高めるため高めに設定します。
	PromptTemperature float32 = 0.9
	// ReflectionTemperature は内容に沿った応答にするため低めに設定します。
	ReflectionTemperature float32 = 0.7

	// FallbackPrompt は生成に失敗したときのプロンプトです。
	FallbackPrompt = "What made you smile today?"
	// EmptyPrompt は生成結果が空だったときのプロンプトです。
	EmptyPrompt = "What are three things you're grateful for today?"
	// FallbackReflection は生成に失敗したときの振り返りです。
	FallbackReflection = "It's brave to put your thoughts on paper. Keep reflecting!"
	// EmptyReflection は生成結果が空だったときの振り返りです。
	EmptyReflection = "Thank you for sharing your thoughts today."

	// DefaultTimeout は1回の生成呼び出しの上限時間です。
	DefaultTimeout = 15 * time.Second
)

// TextGenerator は生成AIへのテキスト生成リクエストを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type TextGenerator interface {
	// Generate はプロンプトと温度を指定してテキストを生成します。
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Gateway は日替わりプロンプトと振り返りを生成します。
// 生成AIが利用できない場合でも日記の読み書きは継続できるよう、
// どの失敗もフォールバック文言に置き換え、呼び出し元にエラーを返しません。
type Gateway struct {
	gen     TextGenerator
	timeout time.Duration
}

// NewGateway はGatewayの新しいインスタンスを生成します。
// timeoutが0以下の場合はDefaultTimeoutを使用します。
func NewGateway(gen TextGenerator, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{gen: gen, timeout: timeout}
}

// DailyPrompt は今日の日記プロンプトを返します。
func (g *Gateway) DailyPrompt(ctx context.Context) string {
	return g.generate(ctx, "prompt", DailyPromptText, PromptTemperature, FallbackPrompt, EmptyPrompt)
}

// Reflection はエントリ本文に対する短い振り返りを返します。
// 本文の長さの検証は呼び出し元の責務です。
func (g *Gateway) Reflection(ctx context.Context, content string) string {
	prompt := fmt.Sprintf(ReflectionPromptTemplate, content)
	return g.generate(ctx, "reflection", prompt, ReflectionTemperature, FallbackReflection, EmptyReflection)
}

func (g *Gateway) generate(ctx context.Context, kind, prompt string, temperature float32, onError, onEmpty string) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.gen.Generate(ctx, prompt, temperature)
	if err != nil {
		slog.Warn("assistant generation failed; using fallback", "kind", kind, "error", err)
		metrics.AssistantFallbacks.WithLabelValues(kind, "error").Inc()
		return onError
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("assistant returned empty text; using fallback", "kind", kind)
		metrics.AssistantFallbacks.WithLabelValues(kind, "empty").Inc()
		return onEmpty
	}
	return text
}
