package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOllama returns a test server that answers /api/generate with the given
// free-text model response.
func mockOllama(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.NotEmpty(t, req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(ollamaResponse{Response: response}))
	}))
}

func TestVerifier_Detect(t *testing.T) {
	srv := mockOllama(t, `Here are the detections:
[{"text":"Jane Smith","kind":"person","confidence":0.95},
 {"text":"jane@example.com","kind":"email","confidence":0.9}]`)
	defer srv.Close()

	v := NewVerifier(srv.URL, "test-model", 0, 0.5)
	text := "Jane Smith <jane@example.com> wrote to Jane Smith."
	spans, err := v.Detect(context.Background(), 3, text)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	// Both occurrences of the person value map to spans.
	assert.Equal(t, "Jane Smith", spans[0].Text)
	assert.Equal(t, KindPerson, spans[0].Kind)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, "Jane Smith", spans[1].Text)
	assert.Equal(t, 39, spans[1].Start)
	assert.Equal(t, "jane@example.com", spans[2].Text)

	for _, sp := range spans {
		assert.True(t, sp.Verified)
		assert.Equal(t, SourceVerifier, sp.Source)
		assert.Equal(t, 3, sp.Page)
		assert.Equal(t, text[sp.Start:sp.End], sp.Text)
	}
}

func TestVerifier_FiltersLowConfidence(t *testing.T) {
	srv := mockOllama(t, `[{"text":"maybe","kind":"person","confidence":0.2},
{"text":"","kind":"email","confidence":0.9}]`)
	defer srv.Close()

	v := NewVerifier(srv.URL, "test-model", 0, 0.5)
	spans, err := v.Detect(context.Background(), 0, "maybe something")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestVerifier_ValueNotInText(t *testing.T) {
	srv := mockOllama(t, `[{"text":"Jane Smith","kind":"person","confidence":0.9}]`)
	defer srv.Close()

	v := NewVerifier(srv.URL, "test-model", 0, 0.5)
	spans, err := v.Detect(context.Background(), 0, "nothing relevant here")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestVerifier_NoArrayInResponse(t *testing.T) {
	srv := mockOllama(t, "I could not find any structured output.")
	defer srv.Close()

	v := NewVerifier(srv.URL, "test-model", 0, 0.5)
	_, err := v.Detect(context.Background(), 0, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON array")
}

func TestVerifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, "test-model", 0, 0.5)
	_, err := v.Detect(context.Background(), 0, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestVerifier_ContextCancelled(t *testing.T) {
	// One request per minute with burst 1: the second Wait blocks until the
	// context is cancelled.
	v := NewVerifier("http://127.0.0.1:1", "test-model", 1, 0.5)
	require.NoError(t, v.limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.Detect(ctx, 0, "text")
	assert.Error(t, err)
}

func TestNewVerifier_Defaults(t *testing.T) {
	v := NewVerifier("", "m", 0, 0.5)
	assert.Equal(t, DefaultOllamaURL, v.baseURL)
}
