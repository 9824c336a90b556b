package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/logger"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/observability"
)

var asker = &models.User{ID: 1, Username: "asker", Role: models.RoleUser}

// fakeCompletions mimics the chat completions endpoint closely enough for
// the client library.
func fakeCompletions(t *testing.T, handle func(w http.ResponseWriter, req map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handle(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "llama-3.1-8b-instant",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(body)
}

func newService(t *testing.T, baseURL string, timeout time.Duration) (*Service, *observability.Metrics) {
	t.Helper()
	metrics := observability.New()
	gen := NewOpenAIClient(config.LLMConfig{APIKey: "test-key", BaseURL: baseURL, Model: "llama-3.1-8b-instant"})
	return New(gen, timeout, logger.Discard(), metrics), metrics
}

func TestSuggest_Generated(t *testing.T) {
	srv := fakeCompletions(t, func(w http.ResponseWriter, req map[string]interface{}) {
		assert.Equal(t, "llama-3.1-8b-instant", req["model"])
		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)
		user := messages[1].(map[string]interface{})
		assert.Equal(t, "How do I reverse a slice?", user["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("Use `slices.Reverse`:\n\n- it works **in place**")))
	})
	svc, metrics := newService(t, srv.URL, time.Second)

	got, err := svc.Suggest(context.Background(), asker, "  How do I reverse a slice?  ")
	require.NoError(t, err)
	assert.Equal(t, "How do I reverse a slice?", got.Question)
	assert.Equal(t, ConfidenceGenerated, got.Confidence)
	assert.Contains(t, got.Answer, "<code>slices.Reverse</code>")
	assert.Contains(t, got.Answer, "<strong>in place</strong>")
	assert.Contains(t, got.Answer, "<li>")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssistantRequestsTotal.WithLabelValues("generated")))
}

func TestSuggest_HTMLPassesThrough(t *testing.T) {
	srv := fakeCompletions(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("<p>Already <em>HTML</em></p>")))
	})
	svc, _ := newService(t, srv.URL, time.Second)

	got, err := svc.Suggest(context.Background(), asker, "Give me HTML")
	require.NoError(t, err)
	assert.Equal(t, "<p>Already <em>HTML</em></p>", got.Answer)
}

func TestSuggest_ServerErrorFallsBack(t *testing.T) {
	srv := fakeCompletions(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	svc, metrics := newService(t, srv.URL, time.Second)

	got, err := svc.Suggest(context.Background(), asker, "Will this fail?")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceFailed, got.Confidence)
	assert.Contains(t, got.Answer, "encountered an error")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssistantRequestsTotal.WithLabelValues("error")))
}

func TestSuggest_TimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	srv := fakeCompletions(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		<-release
	})
	defer close(release)
	svc, metrics := newService(t, srv.URL, 50*time.Millisecond)

	start := time.Now()
	got, err := svc.Suggest(context.Background(), asker, "Is anyone there?")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, ConfidenceFailed, got.Confidence)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssistantRequestsTotal.WithLabelValues("timeout")))
}

type stubGenerator struct {
	answer string
	err    error
	calls  int
}

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	g.calls++
	return g.answer, g.err
}

func TestSuggest_NoCredentials(t *testing.T) {
	metrics := observability.New()
	svc := New(nil, time.Second, logger.Discard(), metrics)

	got, err := svc.Suggest(context.Background(), asker, "What is a goroutine?")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceNoKey, got.Confidence)
	assert.True(t, strings.HasPrefix(got.Answer, "<p>"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssistantRequestsTotal.WithLabelValues("no_key")))
}

func TestSuggest_EmptyCompletionFallsBack(t *testing.T) {
	gen := &stubGenerator{answer: "   "}
	svc := New(gen, time.Second, logger.Discard(), observability.New())

	got, err := svc.Suggest(context.Background(), asker, "Say nothing")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceFailed, got.Confidence)
}

func TestSuggest_Rejections(t *testing.T) {
	gen := &stubGenerator{err: errors.New("should not be called")}
	svc := New(gen, time.Second, logger.Discard(), observability.New())
	banned := &models.User{ID: 2, Banned: true}

	_, err := svc.Suggest(context.Background(), nil, "A fine question")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Suggest(context.Background(), banned, "A fine question")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Suggest(context.Background(), asker, "  a ")
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	_, err = svc.Suggest(context.Background(), asker, strings.Repeat("q", maxQuestionLength+1))
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	assert.Zero(t, gen.calls)
}

func TestEnsureHTML_RendersPlainText(t *testing.T) {
	svc := New(nil, 0, logger.Discard(), observability.New())

	out := svc.ensureHTML("plain text with a & sign")
	assert.Equal(t, "<p>plain text with a &amp; sign</p>\n", out)
}
