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

// Google Gemini generateContent provider.
type GeminiClient struct {
	Client *http.Client
	Host   string
	APIKey string
	Model  string
}

var _ Classifier = (*GeminiClient)(nil)

func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		Client: util.DirectHTTPClient(),
		Host:   "https://generativelanguage.googleapis.com",
		APIKey: apiKey,
		Model:  model,
	}
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

// schema: https://ai.google.dev/api/generate-content
type geminiReq struct {
	SystemInstruction geminiContent   `json:"system_instruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type GeminiResp struct {
	Candidates []GeminiResp_Candidate `json:"candidates"`
}

type GeminiResp_Candidate struct {
	Content geminiContent `json:"content"`
}

func (c *GeminiClient) Classify(ctx context.Context, text string) (*moderation.Verdict, error) {
	body, err := json.Marshal(geminiReq{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: text}}},
		},
		GenerationConfig: geminiGenConfig{
			ResponseMimeType: "application/json",
			Temperature:      0,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.Host, c.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini request failed status=%d", res.StatusCode)
	}

	var parsed GeminiResp
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed parsing gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini response had no candidates")
	}
	return parseWireVerdict(parsed.Candidates[0].Content.Parts[0].Text)
}
