package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lumina_backend/internal/feature/journal/domain/entity"
	"lumina_backend/internal/feature/journal/domain/view"
	"lumina_backend/internal/platform/metrics"
)

const (
	// MinReflectionLength は振り返りを依頼できる本文の最小文字数です。
	MinReflectionLength = 50
	// DashboardTopMoods はダッシュボードに表示する気分の件数です。
	DashboardTopMoods = 3
)

// Draft はエディタから保存されるエントリの入力です。
// IDが空の場合は新規作成として扱います。
type Draft struct {
	ID         string
	Title      string
	Content    string
	Mood       string
	AIAnalysis string
}

// ListResult は一覧取得の結果です。
// 取得に失敗した場合もEntriesは空のスライスで、Errに原因を保持します。
type ListResult struct {
	Entries []entity.Entry
	Err     error
}

// OK は一覧取得が成功したかどうかを返します。
func (r ListResult) OK() bool {
	return r.Err == nil
}

// DashboardView はダッシュボード表示用に集計したデータです。
type DashboardView struct {
	Entries            []entity.Entry   // 検索クエリで絞り込んだエントリ
	Total              int              // 絞り込み前の件数
	MoodStats          []view.MoodShare // 全エントリの気分分布
	TopMoods           []view.MoodShare // 上位DashboardTopMoods件
	Prompt             string           // 今日のプロンプト
	EntriesUnavailable bool             // 一覧の取得に失敗した場合true
}

// journalUsecase は日記エントリ操作のビジネスロジックを提供します。
type journalUsecase struct {
	entries   EntryRepository
	assistant Assistant
	now       func() time.Time
	newID     func() string
}

// NewJournalUsecase はjournalUsecaseの新しいインスタンスを生成します。
func NewJournalUsecase(entries EntryRepository, assistant Assistant) *journalUsecase {
	return &journalUsecase{
		entries:   entries,
		assistant: assistant,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ListEntries はユーザーのエントリを日付の降順で返します。
// 読み取り失敗で画面が壊れないよう、失敗時はログを出して空の一覧と原因を返します。
func (u *journalUsecase) ListEntries(ctx context.Context, ownerID string) ListResult {
	entries, err := u.entries.ListByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to list entries", "user_id", ownerID, "error", err)
		metrics.EntryListFailures.Inc()
		return ListResult{Entries: []entity.Entry{}, Err: err}
	}
	if entries == nil {
		entries = []entity.Entry{}
	}
	return ListResult{Entries: entries}
}

// GetEntry はユーザーが所有するエントリを1件取得します。
// 他ユーザーのエントリは存在しないものとして ErrEntryNotFound を返します。
func (u *journalUsecase) GetEntry(ctx context.Context, ownerID, id string) (entity.Entry, error) {
	e, err := u.entries.FindByID(ctx, id)
	if err != nil {
		return entity.Entry{}, err
	}
	if e.UserID != ownerID {
		return entity.Entry{}, ErrEntryNotFound
	}
	return e, nil
}

// SaveEntry はエディタの保存操作を処理します。
//   - タイトルと本文は前後の空白を除いて空であってはなりません
//   - 気分が未指定の場合は DefaultMood を使用します
//   - 既存エントリの更新では初回保存時の日付を引き継ぎます
func (u *journalUsecase) SaveEntry(ctx context.Context, ownerID string, d Draft) (entity.Entry, error) {
	title := strings.TrimSpace(d.Title)
	content := strings.TrimSpace(d.Content)
	if title == "" {
		return entity.Entry{}, ErrTitleRequired
	}
	if content == "" {
		return entity.Entry{}, ErrContentRequired
	}

	mood := entity.DefaultMood
	if strings.TrimSpace(d.Mood) != "" {
		m, ok := entity.ParseMood(d.Mood)
		if !ok {
			return entity.Entry{}, fmt.Errorf("%w: %q", ErrInvalidMood, d.Mood)
		}
		mood = m
	}

	e := entity.Entry{
		ID:         d.ID,
		UserID:     ownerID,
		Title:      title,
		Content:    content,
		Mood:       mood,
		Date:       u.now().UnixMilli(),
		AIAnalysis: strings.TrimSpace(d.AIAnalysis),
		Tags:       []string{},
	}

	if e.ID == "" {
		e.ID = u.newID()
	} else {
		// 日付を引き継ぐため保存前に既存行を読み直す
		existing, err := u.entries.FindByID(ctx, e.ID)
		switch {
		case err == nil:
			if existing.UserID != ownerID {
				return entity.Entry{}, ErrEntryNotFound
			}
			e.Date = existing.Date
		case errors.Is(err, ErrEntryNotFound):
			// 指定IDで新規作成
		default:
			return entity.Entry{}, fmt.Errorf("load entry before save: %w", err)
		}
	}

	if err := u.entries.Upsert(ctx, e); err != nil {
		return entity.Entry{}, err
	}
	return e, nil
}

// DeleteEntry はユーザーが所有するエントリを削除します。
func (u *journalUsecase) DeleteEntry(ctx context.Context, ownerID, id string) error {
	if _, err := u.GetEntry(ctx, ownerID, id); err != nil {
		return err
	}
	return u.entries.Delete(ctx, id)
}

// Reflect は下書き本文に対するAIの振り返りを返します。
// 前後の空白を除いた本文がMinReflectionLength文字未満の場合、生成AIを呼ばずにErrContentTooShortを返します。
func (u *journalUsecase) Reflect(ctx context.Context, content string) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(content)) < MinReflectionLength {
		return "", ErrContentTooShort
	}
	return u.assistant.Reflection(ctx, content), nil
}

// DailyPrompt は今日の日記プロンプトを返します。
func (u *journalUsecase) DailyPrompt(ctx context.Context) string {
	return u.assistant.DailyPrompt(ctx)
}

// Dashboard は一覧とプロンプトを並行して取得し、両方が揃ってから表示用データを組み立てます。
func (u *journalUsecase) Dashboard(ctx context.Context, ownerID, query string) DashboardView {
	var (
		list   ListResult
		prompt string
	)

	// どちらの取得もエラーを返さないため、Waitは待ち合わせにのみ使う
	var g errgroup.Group
	g.Go(func() error {
		list = u.ListEntries(ctx, ownerID)
		return nil
	})
	g.Go(func() error {
		prompt = u.assistant.DailyPrompt(ctx)
		return nil
	})
	_ = g.Wait()

	stats := view.MoodDistribution(list.Entries)
	return DashboardView{
		Entries:            view.FilterEntries(list.Entries, query),
		Total:              len(list.Entries),
		MoodStats:          stats,
		TopMoods:           view.TopMoods(stats, DashboardTopMoods),
		Prompt:             prompt,
		EntriesUnavailable: !list.OK(),
	}
}
