// Package handler はjournalフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumina_backend/internal/api"
	"lumina_backend/internal/feature/journal/domain/entity"
	"lumina_backend/internal/feature/journal/domain/view"
	"lumina_backend/internal/feature/journal/usecase"
	jwtmw "lumina_backend/internal/platform/jwt"
	"lumina_backend/internal/platform/validation"
)

// JournalUsecase は日記操作のユースケースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type JournalUsecase interface {
	ListEntries(ctx context.Context, ownerID string) usecase.ListResult
	GetEntry(ctx context.Context, ownerID, id string) (entity.Entry, error)
	SaveEntry(ctx context.Context, ownerID string, d usecase.Draft) (entity.Entry, error)
	DeleteEntry(ctx context.Context, ownerID, id string) error
	Reflect(ctx context.Context, content string) (string, error)
	DailyPrompt(ctx context.Context) string
	Dashboard(ctx context.Context, ownerID, query string) usecase.DashboardView
}

// JournalHandler は日記エントリとAIアシスタントのHTTPリクエストを処理します。
type JournalHandler struct {
	uc JournalUsecase
}

// NewJournalHandler はJournalHandlerの新しいインスタンスを生成します。
func NewJournalHandler(uc JournalUsecase) *JournalHandler {
	return &JournalHandler{uc: uc}
}

// Dashboard はダッシュボード表示用のデータを返します。
//
// エンドポイント例:
// GET /dashboard?q=walk
func (h *JournalHandler) Dashboard(c *gin.Context) {
	d := h.uc.Dashboard(c.Request.Context(), jwtmw.UserID(c), c.Query("q"))
	c.JSON(http.StatusOK, api.DashboardResponse{
		Entries:     toEntryResponses(d.Entries),
		Total:       d.Total,
		MoodStats:   toMoodShareResponses(d.MoodStats),
		TopMoods:    toMoodShareResponses(d.TopMoods),
		Prompt:      d.Prompt,
		Unavailable: d.EntriesUnavailable,
	})
}

// ListEntries はエントリ一覧を日付の降順で返します。
// 読み取りに失敗しても200で空の一覧を返し、unavailableで通知します。
func (h *JournalHandler) ListEntries(c *gin.Context) {
	res := h.uc.ListEntries(c.Request.Context(), jwtmw.UserID(c))
	entries := view.FilterEntries(res.Entries, c.Query("q"))
	c.JSON(http.StatusOK, api.EntryListResponse{
		Entries:     toEntryResponses(entries),
		Total:       len(res.Entries),
		Unavailable: !res.OK(),
	})
}

// GetEntry は1件のエントリを返します。存在しない場合は404です。
func (h *JournalHandler) GetEntry(c *gin.Context) {
	e, err := h.uc.GetEntry(c.Request.Context(), jwtmw.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, "get entry", err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(e))
}

// CreateEntry は新しいエントリを保存し、201を返します。
func (h *JournalHandler) CreateEntry(c *gin.Context) {
	h.save(c, "", http.StatusCreated)
}

// UpdateEntry は既存エントリを保存します。作成日時は保持されます。
func (h *JournalHandler) UpdateEntry(c *gin.Context) {
	h.save(c, c.Param("id"), http.StatusOK)
}

func (h *JournalHandler) save(c *gin.Context, id string, status int) {
	var req api.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("entry validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: validation.Message(err)})
		return
	}

	e, err := h.uc.SaveEntry(c.Request.Context(), jwtmw.UserID(c), usecase.Draft{
		ID:         id,
		Title:      req.Title,
		Content:    req.Content,
		Mood:       req.Mood,
		AIAnalysis: req.AIAnalysis,
	})
	if err != nil {
		h.writeError(c, "save entry", err)
		return
	}
	c.JSON(status, toEntryResponse(e))
}

// DeleteEntry はエントリを削除し、204を返します。
func (h *JournalHandler) DeleteEntry(c *gin.Context) {
	if err := h.uc.DeleteEntry(c.Request.Context(), jwtmw.UserID(c), c.Param("id")); err != nil {
		h.writeError(c, "delete entry", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DailyPrompt は今日の日記プロンプトを返します。生成AIが失敗しても常に200です。
func (h *JournalHandler) DailyPrompt(c *gin.Context) {
	c.JSON(http.StatusOK, api.PromptResponse{Prompt: h.uc.DailyPrompt(c.Request.Context())})
}

// Reflect は下書き本文に対するAIの振り返りを返します。
func (h *JournalHandler) Reflect(c *gin.Context) {
	var req api.ReflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: validation.Message(err)})
		return
	}
	text, err := h.uc.Reflect(c.Request.Context(), req.Content)
	if err != nil {
		h.writeError(c, "reflect", err)
		return
	}
	c.JSON(http.StatusOK, api.ReflectionResponse{Reflection: text})
}

// Moods は選択可能な気分を表示順で返します。
func Moods(c *gin.Context) {
	out := make([]string, len(entity.Moods))
	for i, m := range entity.Moods {
		out[i] = string(m)
	}
	c.JSON(http.StatusOK, api.MoodsResponse{Moods: out})
}

// writeError はユースケースのエラーをHTTPステータスに変換します。
//   - 入力エラー: 400
//   - 見つからない/他ユーザーのエントリ: 404
//   - ストレージ障害: 502（直前の状態は保持されているため再試行可能）
func (h *JournalHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case usecase.IsValidation(err):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: usecase.ErrEntryNotFound.Error()})
	default:
		slog.Error(op+" failed", "error", err, "user_id", jwtmw.UserID(c), "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "failed to " + op})
	}
}

func toEntryResponse(e entity.Entry) api.EntryResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return api.EntryResponse{
		ID:         e.ID,
		Title:      e.Title,
		Content:    e.Content,
		Mood:       string(e.Mood),
		Date:       e.Date,
		AIAnalysis: e.AIAnalysis,
		Tags:       tags,
		WordCount:  e.WordCount(),
	}
}

func toEntryResponses(entries []entity.Entry) []api.EntryResponse {
	out := make([]api.EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toMoodShareResponses(shares []view.MoodShare) []api.MoodShareResponse {
	out := make([]api.MoodShareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, api.MoodShareResponse{Mood: string(s.Mood), Count: s.Count, Percent: s.Percent})
	}
	return out
}
