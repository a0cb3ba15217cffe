// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"

	"lumina_backend/internal/feature/assistant/adapters/gemini"
	assistantusecase "lumina_backend/internal/feature/assistant/usecase"
	"lumina_backend/internal/platform/config"
	infrahttp "lumina_backend/internal/platform/http"
)

// NewAssistant creates the AI gateway backed by Gemini.
// If the client cannot be created, the gateway still works and serves fallback text.
func NewAssistant(ctx context.Context, cfg config.AssistantConfig) *assistantusecase.Gateway {
	var gen assistantusecase.TextGenerator
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		HTTP:    infrahttp.NewHTTPClient(cfg.Timeout),
	})
	if err != nil {
		slog.Warn("assistant unavailable, serving fallback text", "error", err)
		gen = gemini.Unavailable()
	} else {
		gen = client
	}
	return assistantusecase.NewGateway(gen, cfg.Timeout)
}
