// Package adapters provides repository implementations for the journal feature.
package adapters

import (
	"time"

	"lumina_backend/internal/feature/journal/domain/entity"
)

// DateLayout is the timestamp format stored in the date column: UTC with
// millisecond precision, the same shape as JavaScript's toISOString.
const DateLayout = "2006-01-02T15:04:05.000Z"

// EntryModel is the GORM model for the entries table.
type EntryModel struct {
	ID         string   `gorm:"primaryKey;size:36"`
	UserID     string   `gorm:"column:user_id;index;size:36;not null"`
	Title      string   `gorm:"not null"`
	Content    string   `gorm:"type:text;not null"`
	Mood       string   `gorm:"size:16;not null"`
	Date       string   `gorm:"index;size:32;not null"`
	AIAnalysis *string  `gorm:"column:ai_analysis;type:text"`
	Tags       []string `gorm:"serializer:json"`
}

// TableName returns the table name for GORM.
func (EntryModel) TableName() string {
	return "entries"
}

// ToEntity converts the row to a domain entry.
// A missing tag list becomes an empty slice and an unparseable date becomes 0.
func (m *EntryModel) ToEntity() entity.Entry {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	var analysis string
	if m.AIAnalysis != nil {
		analysis = *m.AIAnalysis
	}
	return entity.Entry{
		ID:         m.ID,
		UserID:     m.UserID,
		Title:      m.Title,
		Content:    m.Content,
		Mood:       entity.Mood(m.Mood),
		Date:       ParseDate(m.Date),
		AIAnalysis: analysis,
		Tags:       tags,
	}
}

// EntryModelFromEntity converts a domain entry to a row.
func EntryModelFromEntity(e entity.Entry) *EntryModel {
	var analysis *string
	if e.AIAnalysis != "" {
		a := e.AIAnalysis
		analysis = &a
	}
	return &EntryModel{
		ID:         e.ID,
		UserID:     e.UserID,
		Title:      e.Title,
		Content:    e.Content,
		Mood:       string(e.Mood),
		Date:       FormatDate(e.Date),
		AIAnalysis: analysis,
		Tags:       e.Tags,
	}
}

// FormatDate renders epoch milliseconds in DateLayout.
func FormatDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// ParseDate reads an RFC 3339 timestamp into epoch milliseconds.
// It returns 0 when s cannot be parsed.
func ParseDate(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
