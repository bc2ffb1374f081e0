// Durable per-user moderation state and the deterministic escalation ladder.
//
// Escalation is a function of the post-increment strike count only: every
// violation, regardless of category or severity, advances the same counter.
// Strike history is append-only; state rows are never deleted.
package escalation

import (
	"time"

	"github.com/plazachat/vigil/moderation"
)

// One row per user who has ever had a violation applied. Mutated only by
// ApplyViolation and ClearMute; concurrent writers from other instances
// resolve last-write-wins, which at worst delays escalation by one strike.
type ModerationState struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID       string     `gorm:"uniqueIndex;not null" json:"userId"`
	StrikeCount  int        `gorm:"not null;default:0" json:"strikeCount"`
	LastStrikeAt time.Time  `json:"lastStrikeAt"`
	MuteUntil    *time.Time `json:"muteUntil,omitempty"`
	LastReason   string     `json:"lastReason,omitempty"`
}

// a user is muted iff MuteUntil is set and still in the future; expiry needs
// no explicit unmute event
func (s *ModerationState) Muted(now time.Time) bool {
	return s.MuteUntil != nil && s.MuteUntil.After(now)
}

type Result struct {
	Action       moderation.Action
	StrikeCount  int
	MuteDuration time.Duration
	MuteUntil    *time.Time
}

// The ladder, keyed on post-increment strike count.
func Escalate(strikeCount int) (moderation.Action, time.Duration) {
	switch {
	case strikeCount <= 1:
		return moderation.ActionWarn, 0
	case strikeCount == 2:
		return moderation.ActionMute, 5 * time.Minute
	case strikeCount == 3:
		return moderation.ActionMute, 15 * time.Minute
	default:
		return moderation.ActionMute, 60 * time.Minute
	}
}
