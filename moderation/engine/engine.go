// Orchestrator for message evaluation: sequences the pattern detector, the
// local spam tracker, and the classifier gateway, applies unsafe verdicts to
// the escalation store, and emits audit records.
//
// Evaluation runs asynchronously after the message is already accepted for
// delivery; the send path only consults the cache-backed mute check. Any
// internal fault is caught at this boundary and converted to a safe verdict.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/moderation/audit"
	"github.com/plazachat/vigil/moderation/classifier"
	"github.com/plazachat/vigil/moderation/escalation"
	"github.com/plazachat/vigil/moderation/pattern"
	"github.com/plazachat/vigil/moderation/spam"
)

// one outbound chat message, as handed over by the send flow
type MessageEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Text     string `json:"text"`
}

// runtime for evaluating messages, managing per-user state, and recording
// moderation actions
type Engine struct {
	Logger      *slog.Logger
	Spam        *spam.Tracker
	Classifiers *classifier.Gateway
	States      *escalation.Escalator
	Audit       audit.Store
	// optional webhook for mute notifications
	Notifier Notifier
}

// Evaluates one message and applies any resulting escalation. Never returns
// an error and never panics: all failure modes collapse to a safe verdict,
// because moderation must not affect message delivery.
func (eng *Engine) ProcessMessage(ctx context.Context, evt *MessageEvent) (verdict *moderation.Verdict) {
	start := time.Now()
	logger := eng.Logger.With("userID", evt.UserID, "roomID", evt.RoomID)

	// similar to an HTTP server, we want to recover any panics from evaluation
	defer func() {
		if r := recover(); r != nil {
			logger.Error("message evaluation exception", "err", r)
			eventErrorCount.WithLabelValues("panic").Inc()
			verdict = moderation.SafeVerdict()
		}
	}()
	defer func() {
		eventProcessDuration.Observe(time.Since(start).Seconds())
	}()

	if utf8.RuneCountInString(strings.TrimSpace(evt.Text)) <= classifier.TrivialMaxLen {
		eventProcessCount.WithLabelValues("trivial").Inc()
		return moderation.SafeVerdict()
	}

	if res := pattern.Check(evt.Text); res.Matched {
		verdict = &moderation.Verdict{
			Safe:       false,
			Reason:     string(res.Category),
			Severity:   patternSeverity(res.Category),
			DetectedBy: moderation.SourcePattern,
		}
		eng.escalate(ctx, logger, evt, verdict)
		eng.logOutcome(logger, evt, verdict, start)
		return verdict
	}

	if res := eng.Spam.Record(evt.UserID, evt.Text); res.IsSpam {
		verdict = &moderation.Verdict{
			Safe:       false,
			Reason:     string(res.Kind),
			Severity:   moderation.SeverityLow,
			DetectedBy: moderation.SourceSpam,
		}
		eng.escalate(ctx, logger, evt, verdict)
		eng.logOutcome(logger, evt, verdict, start)
		return verdict
	}

	verdict = eng.Classifiers.Classify(ctx, evt.Text)
	if !verdict.Safe {
		eng.escalate(ctx, logger, evt, verdict)
	}
	eng.logOutcome(logger, evt, verdict, start)
	return verdict
}

func patternSeverity(cat pattern.Category) moderation.Severity {
	if cat == pattern.CategoryIllegalGoods {
		return moderation.SeverityHigh
	}
	return moderation.SeverityMedium
}

// Applies the violation to the escalation store and appends one audit record.
// The audit record is written even when escalation itself fails, so an outage
// of the state store never loses the observation.
func (eng *Engine) escalate(ctx context.Context, logger *slog.Logger, evt *MessageEvent, verdict *moderation.Verdict) {
	strikeCount := 0
	res, err := eng.States.ApplyViolation(ctx, evt.UserID, verdict.Reason)
	if err != nil {
		logger.Error("escalation failed", "err", err, "reason", verdict.Reason)
		eventErrorCount.WithLabelValues("escalation").Inc()
	} else {
		verdict.Action = res.Action
		verdict.MuteMinutes = int(res.MuteDuration.Minutes())
		strikeCount = res.StrikeCount
		actionCount.WithLabelValues(string(res.Action)).Inc()
	}

	rec := &audit.AuditRecord{
		UserID:      evt.UserID,
		Username:    evt.Username,
		RoomID:      evt.RoomID,
		Excerpt:     evt.Text,
		Reason:      verdict.Reason,
		Severity:    verdict.Severity,
		DetectedBy:  verdict.DetectedBy,
		Action:      verdict.Action,
		MuteMinutes: verdict.MuteMinutes,
		StrikeCount: strikeCount,
	}
	if err := eng.Audit.Append(ctx, rec); err != nil {
		logger.Error("audit append failed", "err", err)
		eventErrorCount.WithLabelValues("audit").Inc()
	}

	if eng.Notifier != nil && verdict.Action == moderation.ActionMute {
		if err := eng.Notifier.SendMute(ctx, evt, verdict, strikeCount); err != nil {
			logger.Warn("mute notification failed", "err", err)
		}
	}
}

// canonical log line per evaluation
func (eng *Engine) logOutcome(logger *slog.Logger, evt *MessageEvent, verdict *moderation.Verdict, start time.Time) {
	if verdict.Safe {
		eventProcessCount.WithLabelValues("safe").Inc()
		logger.Debug("message evaluated",
			"safe", true,
			"duration", time.Since(start),
		)
		return
	}
	eventProcessCount.WithLabelValues("unsafe").Inc()
	logger.Info("message evaluated",
		"safe", false,
		"reason", verdict.Reason,
		"severity", verdict.Severity,
		"detectedBy", verdict.DetectedBy,
		"action", verdict.Action,
		"muteMinutes", verdict.MuteMinutes,
		"duration", time.Since(start),
	)
}
