package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/moderation/audit"
	"github.com/plazachat/vigil/moderation/escalation"
)

func msg(userID, text string) *MessageEvent {
	return &MessageEvent{
		UserID:   userID,
		Username: "tester",
		RoomID:   "sala-1",
		Text:     text,
	}
}

func TestEngineTrivialLengthSkipsEverything(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	unsafe := &staticClassifier{name: "p", verdict: &moderation.Verdict{
		Safe: false, Reason: "x", Severity: moderation.SeverityHigh, DetectedBy: moderation.SourceClassifier,
	}}
	eng := EngineTestFixture(unsafe)

	verdict := eng.ProcessMessage(ctx, msg("u1", "ok"))
	assert.True(verdict.Safe)

	// no state was touched
	state, err := eng.States.GetState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(0, state.StrikeCount)
	assert.Equal(0, eng.Spam.Size())
}

func TestEnginePatternViolationEscalates(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	// phone number: strike 1, warn, no mute
	verdict := eng.ProcessMessage(ctx, msg("u1", "912345678"))
	assert.False(verdict.Safe)
	assert.Equal(moderation.SourcePattern, verdict.DetectedBy)
	assert.Equal(moderation.ActionWarn, verdict.Action)
	assert.False(eng.States.IsMuted(ctx, "u1").Muted)

	// repeat phone-pattern message: strike 2, muted 5 minutes
	verdict = eng.ProcessMessage(ctx, msg("u1", "llama al 612 345 678"))
	assert.False(verdict.Safe)
	assert.Equal(moderation.ActionMute, verdict.Action)
	assert.Equal(5, verdict.MuteMinutes)

	status := eng.States.IsMuted(ctx, "u1")
	assert.True(status.Muted)
	assert.InDelta(5*time.Minute.Milliseconds(), status.RemainingMS, float64(2*time.Second.Milliseconds()))

	// both evaluations left audit records
	recs, err := eng.Audit.ListByUser(ctx, "u1", 10)
	require.NoError(err)
	require.Len(recs, 2)
	assert.Equal(moderation.ActionMute, recs[0].Action)
	assert.Equal(2, recs[0].StrikeCount)
	assert.Equal(moderation.ActionWarn, recs[1].Action)
	assert.Equal(1, recs[1].StrikeCount)
}

func TestEngineDuplicateSpamEscalates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	var verdict *moderation.Verdict
	for i := 0; i < 3; i++ {
		verdict = eng.ProcessMessage(ctx, msg("u1", "compra mi curso de trading"))
	}
	assert.False(verdict.Safe)
	assert.Equal(moderation.SourceSpam, verdict.DetectedBy)
	assert.Equal("duplicate", verdict.Reason)
	assert.Equal(moderation.ActionWarn, verdict.Action)
}

func TestEngineClassifierVerdictEscalates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	unsafe := &staticClassifier{name: "p", verdict: &moderation.Verdict{
		Safe: false, Reason: "harassment", Severity: moderation.SeverityHigh, DetectedBy: moderation.SourceClassifier,
	}}
	eng := EngineTestFixture(unsafe)

	verdict := eng.ProcessMessage(ctx, msg("u1", "un mensaje cualquiera sin patrones"))
	assert.False(verdict.Safe)
	assert.Equal(moderation.SourceClassifier, verdict.DetectedBy)
	assert.Equal(moderation.ActionWarn, verdict.Action)

	state, err := eng.States.GetState(ctx, "u1")
	assert.NoError(err)
	assert.Equal(1, state.StrikeCount)
	assert.Equal("harassment", state.LastReason)
}

func TestEngineAllClassifiersFailNoMutation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	broken1 := &staticClassifier{name: "a", err: fmt.Errorf("timeout")}
	broken2 := &staticClassifier{name: "b", err: fmt.Errorf("refused")}
	eng := EngineTestFixture(broken1, broken2)

	verdict := eng.ProcessMessage(ctx, msg("u1", "un mensaje cualquiera sin patrones"))
	assert.True(verdict.Safe)

	state, err := eng.States.GetState(ctx, "u1")
	require.NoError(err)
	assert.Equal(0, state.StrikeCount)

	recs, err := eng.Audit.ListByUser(ctx, "u1", 10)
	require.NoError(err)
	assert.Empty(recs)
}

func TestEngineSafeMessageNoStateChange(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	safe := &staticClassifier{name: "p", verdict: moderation.SafeVerdict()}
	eng := EngineTestFixture(safe)

	verdict := eng.ProcessMessage(ctx, msg("u1", "que tal va todo por ahi"))
	assert.True(verdict.Safe)

	state, _ := eng.States.GetState(ctx, "u1")
	assert.Equal(0, state.StrikeCount)
}

// classifier that panics, to exercise the fail-open boundary
type panickyClassifier struct{}

func (panickyClassifier) Name() string { return "panicky" }

func (panickyClassifier) Classify(ctx context.Context, text string) (*moderation.Verdict, error) {
	panic("boom")
}

func TestEngineRecoversPanics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture(panickyClassifier{})

	verdict := eng.ProcessMessage(ctx, msg("u1", "un mensaje cualquiera sin patrones"))
	assert.True(verdict.Safe)
}

func TestEngineAuditWrittenEvenWhenEscalationFails(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	// swap in an audit store we can inspect and a state store that always fails
	memAudit := audit.NewMemStore()
	eng.Audit = memAudit
	eng.States.Store = failingStateStore{}

	verdict := eng.ProcessMessage(ctx, msg("u1", "912345678"))
	assert.False(verdict.Safe)
	// escalation failed, so no action was applied
	assert.Equal(moderation.ActionNone, verdict.Action)

	recs, err := memAudit.ListByUser(ctx, "u1", 10)
	require.NoError(err)
	require.Len(recs, 1)
	assert.Equal("phone-number", recs[0].Reason)
	assert.Equal(0, recs[0].StrikeCount)
}

type failingStateStore struct{}

func (failingStateStore) Get(ctx context.Context, userID string) (*escalation.ModerationState, error) {
	return nil, context.DeadlineExceeded
}

func (failingStateStore) Put(ctx context.Context, state *escalation.ModerationState) error {
	return context.DeadlineExceeded
}
