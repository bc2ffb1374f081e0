package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Durable storage for ModerationState, one record per user. Get returns
// (nil, nil) for users with no state yet.
type StateStore interface {
	Get(ctx context.Context, userID string) (*ModerationState, error)
	Put(ctx context.Context, state *ModerationState) error
}

type GormStateStore struct {
	DB *gorm.DB
}

var _ StateStore = (*GormStateStore)(nil)

func NewGormStateStore(db *gorm.DB) (*GormStateStore, error) {
	if err := db.AutoMigrate(&ModerationState{}); err != nil {
		return nil, fmt.Errorf("migrating moderation state schema: %w", err)
	}
	return &GormStateStore{DB: db}, nil
}

func (s *GormStateStore) Get(ctx context.Context, userID string) (*ModerationState, error) {
	var state ModerationState
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading moderation state: %w", err)
	}
	return &state, nil
}

// Upserts on user_id; mutable fields resolve last-write-wins across
// concurrently-writing instances.
func (s *GormStateStore) Put(ctx context.Context, state *ModerationState) error {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"strike_count", "last_strike_at", "mute_until", "last_reason", "updated_at",
		}),
	}).Create(state).Error
	if err != nil {
		return fmt.Errorf("writing moderation state: %w", err)
	}
	return nil
}

// In-process store for tests and local development.
type MemStateStore struct {
	mu   sync.RWMutex
	data map[string]ModerationState
}

var _ StateStore = (*MemStateStore)(nil)

func NewMemStateStore() *MemStateStore {
	return &MemStateStore{
		data: make(map[string]ModerationState),
	}
}

func (s *MemStateStore) Get(ctx context.Context, userID string) (*ModerationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.data[userID]
	if !ok {
		return nil, nil
	}
	out := state
	return &out, nil
}

func (s *MemStateStore) Put(ctx context.Context, state *ModerationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state.UserID] = *state
	return nil
}
