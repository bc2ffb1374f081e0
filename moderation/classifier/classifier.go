// External text-classification providers and the ordered fallback chain that
// normalizes their heterogeneous responses into one verdict shape.
//
// The chain is the entire retry policy: each provider gets one attempt with
// its own timeout, and any transport error, bad status, or unparsable body
// advances to the next provider. If every provider fails (or none is
// configured) the gateway reports safe; a moderation outage must never
// translate into message blocking or unwarranted punishment.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plazachat/vigil/moderation"
)

type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string) (*moderation.Verdict, error)
}

// Fixed instruction sent to every provider along with the message text. The
// strict output contract is what lets one parser serve all chat-completion
// style providers.
const systemInstruction = `You are a content moderation system for a public chat room. ` +
	`Classify the user message. Respond with ONLY a JSON object, no other text: ` +
	`{"safe": boolean, "reason": "short explanation if unsafe", "severity": "low"|"medium"|"high"}. ` +
	`Unsafe content: harassment, hate speech, sexual content, sharing of personal contact details, ` +
	`commercial solicitation, offers of illegal goods. Ordinary conversation, greetings, and mild ` +
	`profanity between adults are safe.`

// response contract shared by all providers
type wireVerdict struct {
	Safe     bool   `json:"safe"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// Parses a provider's verdict payload. Tolerates markdown code fences, which
// chat-completion models emit even when told not to.
func parseWireVerdict(raw string) (*moderation.Verdict, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var wire wireVerdict
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("unparsable verdict payload: %w", err)
	}
	if wire.Safe {
		return moderation.SafeVerdict(), nil
	}
	return &moderation.Verdict{
		Safe:       false,
		Reason:     wire.Reason,
		Severity:   moderation.ParseSeverity(wire.Severity),
		DetectedBy: moderation.SourceClassifier,
	}, nil
}
