// Append-only audit log of moderation verdicts. Written once per evaluated
// message that produced a violation; read only by admin tooling.
package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plazachat/vigil/moderation"
)

const maxExcerptLen = 256

type AuditRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID   string `gorm:"index;not null" json:"userId"`
	Username string `json:"username"`
	RoomID   string `gorm:"index" json:"roomId"`
	Excerpt  string `json:"excerpt"`

	Reason      string              `json:"reason"`
	Severity    moderation.Severity `json:"severity"`
	DetectedBy  moderation.Source   `json:"detectedBy"`
	Action      moderation.Action   `json:"action"`
	MuteMinutes int                 `json:"muteMinutes"`
	StrikeCount int                 `json:"strikeCount"`
}

type Store interface {
	Append(ctx context.Context, rec *AuditRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]AuditRecord, error)
	ListRecent(ctx context.Context, limit int) ([]AuditRecord, error)
}

type GormStore struct {
	DB *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&AuditRecord{}); err != nil {
		return nil, fmt.Errorf("migrating audit schema: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Append(ctx context.Context, rec *AuditRecord) error {
	rec.Excerpt = truncateExcerpt(rec.Excerpt)
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("appending audit record: %w", err)
	}
	return nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string, limit int) ([]AuditRecord, error) {
	var recs []AuditRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(clampLimit(limit)).
		Find(&recs).Error
	return recs, err
}

func (s *GormStore) ListRecent(ctx context.Context, limit int) ([]AuditRecord, error) {
	var recs []AuditRecord
	err := s.DB.WithContext(ctx).
		Order("id desc").
		Limit(clampLimit(limit)).
		Find(&recs).Error
	return recs, err
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

// bound stored message text; the full body lives in the message store, the
// audit row only needs enough for a human reviewer
func truncateExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxExcerptLen {
		return text
	}
	return string(runes[:maxExcerptLen]) + "…"
}
