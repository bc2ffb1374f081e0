package moderation

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// which stage of the pipeline produced an unsafe verdict
type Source string

const (
	SourcePattern    Source = "pattern"
	SourceSpam       Source = "spam"
	SourceClassifier Source = "classifier"
)

type Action string

const (
	ActionNone Action = ""
	ActionWarn Action = "warn"
	ActionMute Action = "mute"
)

// Normalized outcome of one message evaluation, regardless of which component
// produced it. A safe verdict carries no other fields.
type Verdict struct {
	Safe       bool     `json:"safe"`
	Reason     string   `json:"reason,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	DetectedBy Source   `json:"detectedBy,omitempty"`

	// filled in by the engine after escalation, not by detectors
	Action      Action `json:"action,omitempty"`
	MuteMinutes int    `json:"muteMinutes,omitempty"`
}

func SafeVerdict() *Verdict {
	return &Verdict{Safe: true}
}

// Clamps unknown severity strings (eg, from a sloppy classifier response) to
// a known value rather than failing the verdict.
func ParseSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(raw)
	default:
		return SeverityMedium
	}
}
