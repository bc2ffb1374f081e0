package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plazachat/vigil/moderation"
)

func TestParseWireVerdict(t *testing.T) {
	assert := assert.New(t)

	v, err := parseWireVerdict(`{"safe": true}`)
	assert.NoError(err)
	assert.True(v.Safe)

	v, err = parseWireVerdict(`{"safe": false, "reason": "solicitation", "severity": "high"}`)
	assert.NoError(err)
	assert.False(v.Safe)
	assert.Equal("solicitation", v.Reason)
	assert.Equal(moderation.SeverityHigh, v.Severity)
	assert.Equal(moderation.SourceClassifier, v.DetectedBy)

	// markdown fences from chatty models
	v, err = parseWireVerdict("```json\n{\"safe\": false, \"reason\": \"x\", \"severity\": \"low\"}\n```")
	assert.NoError(err)
	assert.False(v.Safe)
	assert.Equal(moderation.SeverityLow, v.Severity)

	// unknown severity clamps instead of failing
	v, err = parseWireVerdict(`{"safe": false, "reason": "x", "severity": "catastrophic"}`)
	assert.NoError(err)
	assert.Equal(moderation.SeverityMedium, v.Severity)

	_, err = parseWireVerdict("I think this message is fine!")
	assert.Error(err)
}

func TestOpenAIClientClassify(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/chat/completions", r.URL.Path)
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))

		var req openAIReq
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		require.Len(req.Messages, 2)
		assert.Equal("system", req.Messages[0].Role)
		assert.Equal("vendo cosas", req.Messages[1].Content)

		fmt.Fprint(w, `{"choices": [{"message": {"content": "{\"safe\": false, \"reason\": \"solicitation\", \"severity\": \"medium\"}"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL, "gpt-4o-mini")
	verdict, err := c.Classify(context.Background(), "vendo cosas")
	require.NoError(err)
	assert.False(verdict.Safe)
	assert.Equal("solicitation", verdict.Reason)
}

func TestOpenAIClientErrors(t *testing.T) {
	assert := assert.New(t)

	// non-200 status
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewOpenAIClient("k", srv.URL, "")
	_, err := c.Classify(context.Background(), "hola mundo")
	assert.Error(err)

	// malformed body
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv2.Close()
	c2 := NewOpenAIClient("k", srv2.URL, "")
	_, err = c2.Classify(context.Background(), "hola mundo")
	assert.Error(err)

	// well-formed envelope, unparsable verdict
	srv3 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [{"message": {"content": "sure, looks fine"}}]}`)
	}))
	defer srv3.Close()
	c3 := NewOpenAIClient("k", srv3.URL, "")
	_, err = c3.Classify(context.Background(), "hola mundo")
	assert.Error(err)
}

func TestGeminiClientClassify(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal("test-key", r.Header.Get("x-goog-api-key"))

		var req geminiReq
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		require.Len(req.Contents, 1)
		assert.Equal("hola grupo", req.Contents[0].Parts[0].Text)

		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "{\"safe\": true}"}]}}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", "")
	c.Host = srv.URL
	verdict, err := c.Classify(context.Background(), "hola grupo")
	require.NoError(err)
	assert.True(verdict.Safe)
}

func TestGeminiClientEmptyCandidates(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	c := NewGeminiClient("k", "")
	c.Host = srv.URL
	_, err := c.Classify(context.Background(), "hola mundo")
	assert.Error(err)
}
