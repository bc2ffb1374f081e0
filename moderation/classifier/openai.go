package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plazachat/vigil/moderation"
	"github.com/plazachat/vigil/util"
)

// OpenAI-compatible chat-completions provider. Works against api.openai.com
// or any compatible endpoint (vLLM, together, etc) via Host.
type OpenAIClient struct {
	Client *http.Client
	Host   string
	APIKey string
	Model  string
}

var _ Classifier = (*OpenAIClient)(nil)

func NewOpenAIClient(apiKey, host, model string) *OpenAIClient {
	if host == "" {
		host = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		Client: util.DirectHTTPClient(),
		Host:   host,
		APIKey: apiKey,
		Model:  model,
	}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

// schema: https://platform.openai.com/docs/api-reference/chat
type openAIReq struct {
	Model          string             `json:"model"`
	Messages       []openAIReqMessage `json:"messages"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat openAIRespFormat   `json:"response_format"`
}

type openAIReqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type OpenAIResp struct {
	Choices []OpenAIResp_Choice `json:"choices"`
}

type OpenAIResp_Choice struct {
	Message OpenAIResp_Message `json:"message"`
}

type OpenAIResp_Message struct {
	Content string `json:"content"`
}

func (c *OpenAIClient) Classify(ctx context.Context, text string) (*moderation.Verdict, error) {
	body, err := json.Marshal(openAIReq{
		Model: c.Model,
		Messages: []openAIReqMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: text},
		},
		Temperature:    0,
		ResponseFormat: openAIRespFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai request failed status=%d", res.StatusCode)
	}

	var parsed OpenAIResp
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed parsing openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response had no choices")
	}
	return parseWireVerdict(parsed.Choices[0].Message.Content)
}
