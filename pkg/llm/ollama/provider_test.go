package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"archelon-assistant-be/pkg/llm"
)

func decodeRequest(t *testing.T, r *http.Request) ollamaChatRequest {
	t.Helper()
	var req ollamaChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

func TestChatReturnsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		req := decodeRequest(t, r)
		if req.Stream {
			t.Error("non-streaming call sent stream=true")
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   req.Model,
			Message: ollamaMessage{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "test-model")
	got, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello there" {
		t.Errorf("Chat = %q", got)
	}
}

func TestChatMapsModelRoleToAssistant(t *testing.T) {
	var seen []ollamaMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		seen = req.Messages
		json.NewEncoder(w).Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "m")
	_, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "q"},
		{Role: "model", Content: "a"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(seen) != 2 || seen[1].Role != "assistant" {
		t.Errorf("messages = %+v", seen)
	}
}

func TestChatNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "missing")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v", err)
	}
}

func TestChatStreamDeliversFragmentsThenDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		if !req.Stream {
			t.Error("streaming call sent stream=false")
		}
		for _, frag := range []string{"Hel", "lo", "!"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", frag)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "m")
	deltas, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var answer strings.Builder
	var done bool
	for d := range deltas {
		if d.Err != nil {
			t.Fatalf("unexpected delta error: %v", d.Err)
		}
		if d.Done {
			done = true
			continue
		}
		answer.WriteString(d.Content)
	}
	if answer.String() != "Hello!" {
		t.Errorf("answer = %q", answer.String())
	}
	if !done {
		t.Error("stream ended without done delta")
	}
}

func TestChatStreamTruncatedBodyYieldsErrDelta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One fragment, then the connection closes with no done marker.
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "m")
	deltas, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var tokens []string
	var streamErr error
	for d := range deltas {
		if d.Err != nil {
			streamErr = d.Err
			continue
		}
		if !d.Done {
			tokens = append(tokens, d.Content)
		}
	}
	if len(tokens) != 1 || tokens[0] != "partial" {
		t.Errorf("tokens = %v", tokens)
	}
	if streamErr == nil {
		t.Fatal("truncated stream produced no error delta")
	}
}

func TestChatStreamErrorStatusFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "m")
	_, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionsReachTheWire(t *testing.T) {
	var gotOptions *ollamaOptions
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		gotOptions = req.Options
		gotModel = req.Model
		json.NewEncoder(w).Encode(ollamaChatResponse{Done: true})
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, "default-model")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}},
		llm.WithTemperature(0), llm.WithMaxTokens(128), llm.WithModel("override"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotModel != "override" {
		t.Errorf("model = %q", gotModel)
	}
	if gotOptions == nil || gotOptions.NumPredict != 128 {
		t.Errorf("options = %+v", gotOptions)
	}
	if gotOptions.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", gotOptions.Temperature)
	}
}
