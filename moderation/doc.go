// Moderation pipeline for chat messages: local pattern and spam detection,
// a per-user escalation state machine, and an external-classifier fallback
// chain, all behind a fail-open orchestrator.
//
// This package (`github.com/plazachat/vigil/moderation`) holds the verdict
// types shared between the detectors, the classifier gateway, the engine, and
// the audit log. The interesting behavior lives in the subpackages; see
// `cmd/vigil` for the daemon built on them.
//
// The unifying policy is that no failure in this subsystem may ever block or
// delay message delivery: every infrastructure failure collapses to a safe
// verdict, and the only user-visible action (muting) is taken solely via the
// deterministic escalation ladder after an explicit unsafe verdict.
package moderation
