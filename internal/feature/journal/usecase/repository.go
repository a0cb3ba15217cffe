package usecase

import (
	"context"

	"lumina_backend/internal/feature/journal/domain/entity"
)

// EntryRepository はエントリの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type EntryRepository interface {
	// ListByOwner は指定ユーザーのエントリを日付の降順で返します。
	ListByOwner(ctx context.Context, ownerID string) ([]entity.Entry, error)

	// FindByID はIDでエントリを取得します。
	// 存在しない場合は ErrEntryNotFound を返します。
	FindByID(ctx context.Context, id string) (entity.Entry, error)

	// Upsert はIDが一致する行を全項目置換し、存在しなければ挿入します。
	Upsert(ctx context.Context, e entity.Entry) error

	// Delete はIDでエントリを削除します。
	// 削除対象が存在しない場合は ErrEntryNotFound を返します。
	Delete(ctx context.Context, id string) error
}

// Assistant はAIによるプロンプト・振り返り生成を抽象化します。
// 実装は失敗時に固定のフォールバック文言を返し、エラーを返しません。
type Assistant interface {
	DailyPrompt(ctx context.Context) string
	Reflection(ctx context.Context, content string) string
}
