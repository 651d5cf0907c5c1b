package reformulate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/llm"
)

// fakeProvider returns a canned completion and records what it was asked.
type fakeProvider struct {
	reply    string
	err      error
	called   bool
	lastSent []llm.Message
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.called = true
	f.lastSent = history
	return f.reply, f.err
}

func (f *fakeProvider) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.Delta, error) {
	panic("not used")
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func TestEmptyHistorySkipsModel(t *testing.T) {
	p := &fakeProvider{reply: "should not matter"}
	r := NewReformulator(p)

	out, err := r.Reformulate(context.Background(), nil, "What is a sea turtle?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "What is a sea turtle?" {
		t.Errorf("out = %q, want raw question", out)
	}
	if p.called {
		t.Error("provider called for standalone question")
	}
}

func TestFollowUpProducesQuestionNotAnswer(t *testing.T) {
	p := &fakeProvider{reply: "How long do sea turtles live?"}
	r := NewReformulator(p)

	history := []llm.Message{
		{Role: "user", Content: "Tell me about sea turtles."},
		{Role: "assistant", Content: "Sea turtles are marine reptiles..."},
	}

	out, err := r.Reformulate(context.Background(), history, "how long do they live?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "How long do sea turtles live?" {
		t.Errorf("out = %q", out)
	}
	if !p.called {
		t.Fatal("provider not called despite history")
	}
	// History and the raw question must both reach the model.
	if len(p.lastSent) != len(history)+2 {
		t.Errorf("sent %d messages, want %d", len(p.lastSent), len(history)+2)
	}
	last := p.lastSent[len(p.lastSent)-1]
	if last.Role != "system" || !strings.Contains(last.Content, "Do NOT answer") {
		t.Errorf("instruction message malformed: %+v", last)
	}
}

func TestProviderErrorBecomesGenerationFault(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	r := NewReformulator(p)

	_, err := r.Reformulate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, "and it?")
	if !fault.Is(err, fault.KindGeneration) {
		t.Fatalf("err = %v, want GenerationFault", err)
	}
}

func TestBlankOutputBecomesGenerationFault(t *testing.T) {
	p := &fakeProvider{reply: "  \n  "}
	r := NewReformulator(p)

	_, err := r.Reformulate(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, "and it?")
	if !fault.Is(err, fault.KindGeneration) {
		t.Fatalf("err = %v, want GenerationFault", err)
	}
}

func TestSanitizeStripsDecoration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"How deep can sea turtles dive?"`, "How deep can sea turtles dive?"},
		{"Standalone question: Where do they nest?", "Where do they nest?"},
		{"Rewritten question: Where do they nest?", "Where do they nest?"},
		{"Where do they nest?\nNote: resolved 'they' to sea turtles.", "Where do they nest?"},
		{"  plain  ", "plain"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
