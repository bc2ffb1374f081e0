package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/util"
)

// Notifier receives a heads-up when the engine mutes a user. Best-effort: a
// failed notification is logged and dropped, never retried into the pipeline.
type Notifier interface {
	SendMute(ctx context.Context, evt *MessageEvent, verdict *moderation.Verdict, strikeCount int) error
}

// Sends a simple slack message to a moderators channel via "incoming
// webhook". The webhook must be already configured in the slack workplace.
type SlackNotifier struct {
	SlackWebhookURL string

	client *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		// webhook delivery is off the evaluation hot path, retries are safe
		client: util.RobustHTTPClient(),
	}
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (n *SlackNotifier) SendMute(ctx context.Context, evt *MessageEvent, verdict *moderation.Verdict, strikeCount int) error {
	msg := "⚠️ Chat user muted ⚠️\n"
	msg += fmt.Sprintf("`%s` (%s) in room `%s`\n", evt.UserID, evt.Username, evt.RoomID)
	msg += fmt.Sprintf("Reason: `%s` (%s, via %s)\n", verdict.Reason, verdict.Severity, verdict.DetectedBy)
	msg += fmt.Sprintf("Strike %d, muted %d minutes\n", strikeCount, verdict.MuteMinutes)

	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
