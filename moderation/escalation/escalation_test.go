package escalation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/moderation/cachestore"
)

func newTestEscalator() *Escalator {
	cache := cachestore.NewMemCacheStore(100, DefaultCacheTTL)
	return NewEscalator(slog.Default(), NewMemStateStore(), cache)
}

func TestEscalateLadder(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		strikes  int
		action   moderation.Action
		duration time.Duration
	}{
		{1, moderation.ActionWarn, 0},
		{2, moderation.ActionMute, 5 * time.Minute},
		{3, moderation.ActionMute, 15 * time.Minute},
		{4, moderation.ActionMute, 60 * time.Minute},
		{5, moderation.ActionMute, 60 * time.Minute},
		{17, moderation.ActionMute, 60 * time.Minute},
	}
	for _, fix := range fixtures {
		action, duration := Escalate(fix.strikes)
		assert.Equal(fix.action, action, "strikes=%d", fix.strikes)
		assert.Equal(fix.duration, duration, "strikes=%d", fix.strikes)
	}
}

func TestApplyViolationSequence(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	esc := newTestEscalator()

	// strike 1: warn, no mute
	res, err := esc.ApplyViolation(ctx, "u1", "phone-number")
	require.NoError(err)
	assert.Equal(moderation.ActionWarn, res.Action)
	assert.Equal(1, res.StrikeCount)
	assert.Nil(res.MuteUntil)
	assert.False(esc.IsMuted(ctx, "u1").Muted)

	// strike 2: 5 minute mute
	res, err = esc.ApplyViolation(ctx, "u1", "phone-number")
	require.NoError(err)
	assert.Equal(moderation.ActionMute, res.Action)
	assert.Equal(2, res.StrikeCount)
	require.NotNil(res.MuteUntil)

	status := esc.IsMuted(ctx, "u1")
	assert.True(status.Muted)
	assert.InDelta(5*time.Minute.Milliseconds(), status.RemainingMS, float64(2*time.Second.Milliseconds()))

	// strikes 3 and 4
	res, err = esc.ApplyViolation(ctx, "u1", "spam")
	require.NoError(err)
	assert.Equal(15*time.Minute, res.MuteDuration)
	res, err = esc.ApplyViolation(ctx, "u1", "spam")
	require.NoError(err)
	assert.Equal(60*time.Minute, res.MuteDuration)
	assert.Equal(4, res.StrikeCount)
}

func TestStrikeCountMonotonic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	esc := newTestEscalator()

	prev := 0
	for i := 0; i < 10; i++ {
		res, err := esc.ApplyViolation(ctx, "u1", "spam")
		assert.NoError(err)
		assert.Equal(prev+1, res.StrikeCount)
		prev = res.StrikeCount
	}
}

func TestMuteExpiresWithoutUnmute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	esc := newTestEscalator()

	past := time.Now().Add(-time.Minute)
	require.NoError(esc.Store.Put(ctx, &ModerationState{
		UserID:      "u1",
		StrikeCount: 2,
		MuteUntil:   &past,
	}))

	assert.False(esc.IsMuted(ctx, "u1").Muted)
}

func TestGetStateZeroValueAndNegativeCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemStateStore()
	esc := NewEscalator(slog.Default(), store, cachestore.NewMemCacheStore(100, DefaultCacheTTL))

	state, err := esc.GetState(ctx, "nobody")
	require.NoError(err)
	assert.Equal(0, state.StrikeCount)
	assert.Nil(state.MuteUntil)

	// zero state is now cached: a durable write bypassing the escalator is
	// invisible until the TTL lapses...
	until := time.Now().Add(time.Hour)
	require.NoError(store.Put(ctx, &ModerationState{UserID: "nobody", StrikeCount: 2, MuteUntil: &until}))
	state, err = esc.GetState(ctx, "nobody")
	require.NoError(err)
	assert.Equal(0, state.StrikeCount)

	// ...but a write through the escalator overwrites the cache immediately
	_, err = esc.ApplyViolation(ctx, "nobody", "spam")
	require.NoError(err)
	state, err = esc.GetState(ctx, "nobody")
	require.NoError(err)
	assert.Equal(3, state.StrikeCount)
}

func TestClearMute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	esc := newTestEscalator()

	_, err := esc.ApplyViolation(ctx, "u1", "spam")
	require.NoError(err)
	_, err = esc.ApplyViolation(ctx, "u1", "spam")
	require.NoError(err)
	assert.True(esc.IsMuted(ctx, "u1").Muted)

	require.NoError(esc.ClearMute(ctx, "u1"))
	assert.False(esc.IsMuted(ctx, "u1").Muted)

	// strike history survives revocation
	state, err := esc.GetState(ctx, "u1")
	require.NoError(err)
	assert.Equal(2, state.StrikeCount)

	// clearing an unmuted or unknown user is a no-op
	require.NoError(esc.ClearMute(ctx, "u1"))
	require.NoError(esc.ClearMute(ctx, "ghost"))
}

func TestIsMutedFailsOpenOnStoreError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	esc := NewEscalator(slog.Default(), failingStateStore{}, cachestore.NewMemCacheStore(100, DefaultCacheTTL))
	assert.False(esc.IsMuted(ctx, "u1").Muted)
}

type failingStateStore struct{}

func (failingStateStore) Get(ctx context.Context, userID string) (*ModerationState, error) {
	return nil, context.DeadlineExceeded
}

func (failingStateStore) Put(ctx context.Context, state *ModerationState) error {
	return context.DeadlineExceeded
}
