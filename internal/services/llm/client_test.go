package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

func respond(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func reply(content string) map[string]any {
	return map[string]any{
		"finish_reason": "stop",
		"message":       map[string]any{"role": "assistant", "content": content},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization %q", got)
		}
		if r.Header.Get("HTTP-Referer") != "https://example.test" || r.Header.Get("X-Title") != "shortsmith" {
			t.Fatalf("missing app headers: %v", r.Header)
		}
		respond(t, w, reply(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   "demo-model",
		Referer: "https://example.test",
		Title:   "shortsmith",
	})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientAcceptsFullCompletionsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		respond(t, w, reply("```json\n{\"ok\":true}\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/chat/completions/", Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailureIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "unauthorized"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestCompleteUsesAgentPromptAndJSONFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[0].Content, "YouTube metadata") {
			t.Fatalf("expected SEO system prompt, got %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != goopenai.ChatCompletionResponseFormatTypeJSONObject {
			t.Fatalf("expected json response format, got %+v", req.ResponseFormat)
		}
		if req.Messages[1].Content != "the script" {
			t.Fatalf("unexpected user prompt %q", req.Messages[1].Content)
		}
		respond(t, w, reply("Here you go:\n```json\n{\"title\":\"Go\",\"tags\":[\"go\"],\"hashtags\":\"#go\"}\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.Complete(context.Background(), AgentSEOWriter, "the script")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != `{"title":"Go","tags":["go"],"hashtags":"#go"}` {
		t.Fatalf("expected bare JSON, got %q", content)
	}
}

func TestCompleteTextAgentOmitsResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := raw["response_format"]; ok {
			t.Fatalf("text agents must not request a response format: %v", raw)
		}
		respond(t, w, reply("  research notes  "))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	content, err := client.Complete(context.Background(), "researcher", "Tópico: Go")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "research notes" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestCompleteAgentModelOverridesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "writer-model" {
			t.Fatalf("expected agent model, got %q", req.Model)
		}
		respond(t, w, reply("draft"))
	}))
	defer server.Close()

	catalog := Catalog{"WRITER": {System: "write", Model: "writer-model"}}
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"}, WithAgents(catalog))
	if _, err := client.Complete(context.Background(), "writer", "topic"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
}

func TestCompleteUnknownAgent(t *testing.T) {
	client := NewClient(Config{APIKey: "test", BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Complete(context.Background(), "POET", "hi"); err == nil {
		t.Fatal("expected unknown agent error")
	}
}

func TestCompleteEmptyReplyReportsFinishReasonAndRefusal(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		respond(t, w, map[string]any{
			"finish_reason": "content_filter",
			"message":       map[string]any{"role": "assistant", "content": "", "refusal": "not allowed"},
		})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithRetryMaxAttempts(2),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), AgentResearcher, "topic")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	for _, want := range []string{"empty reply", `finish_reason="content_filter"`, `refusal="not allowed"`, "after 2 attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got %v", want, err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
			return
		}
		respond(t, w, reply("notes"))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.Complete(context.Background(), AgentResearcher, "topic"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "finally"
		}
		respond(t, w, reply(content))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	content, err := client.Complete(context.Background(), AgentResearcher, "topic")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "finally" || calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", content, calls)
	}
}

func TestBackoffDelayDoublesUpToCap(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := client.backoffDelay(i + 1); got != w {
			t.Fatalf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestDecodeLLMJSONExtractsFromProse(t *testing.T) {
	var got struct {
		Title string `json:"title"`
	}
	if err := DecodeLLMJSON("Sure! {\"title\":\"Go\"} Hope that helps.", &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Go" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if err := DecodeLLMJSON("no json here", &got); err == nil || !strings.Contains(err.Error(), "payload snippet") {
		t.Fatalf("expected snippet error, got %v", err)
	}
}
