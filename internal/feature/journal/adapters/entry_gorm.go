package adapters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lumina_backend/internal/feature/journal/domain/entity"
	"lumina_backend/internal/feature/journal/usecase"
)

// entryGorm はEntryRepositoryインターフェースのGORM実装です。
type entryGorm struct {
	db *gorm.DB
}

// entryGormがEntryRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.EntryRepository = (*entryGorm)(nil)

// NewEntryRepository は指定されたgorm.DB接続でentryGormの新しいインスタンスを生成します。
func NewEntryRepository(db *gorm.DB) *entryGorm {
	return &entryGorm{db: db}
}

// ListByOwner はユーザーのエントリを日付の降順で取得します。
func (r *entryGorm) ListByOwner(ctx context.Context, ownerID string) ([]entity.Entry, error) {
	var rows []EntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("date DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", ownerID, err)
	}

	out := make([]entity.Entry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEntity())
	}
	return out, nil
}

// FindByID はIDでエントリを取得します。
// 行が存在しない場合、usecase.ErrEntryNotFoundを返します。
func (r *entryGorm) FindByID(ctx context.Context, id string) (entity.Entry, error) {
	var row EntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.Entry{}, usecase.ErrEntryNotFound
		}
		return entity.Entry{}, fmt.Errorf("find entry %s: %w", id, err)
	}
	return row.ToEntity(), nil
}

// Upsert はIDの衝突時に全カラムを置き換えます（部分更新はしません）。
func (r *entryGorm) Upsert(ctx context.Context, e entity.Entry) error {
	row := EntryModelFromEntity(e)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.ID, err)
	}
	return nil
}

// Delete はIDでエントリを削除します。
// 対象行が無い場合、usecase.ErrEntryNotFoundを返します。
func (r *entryGorm) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&EntryModel{})
	if result.Error != nil {
		return fmt.Errorf("delete entry %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return usecase.ErrEntryNotFound
	}
	return nil
}
