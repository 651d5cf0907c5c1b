package stream

import (
	"context"
	"testing"
)

func collect(s *Stream) []Event {
	var events []Event
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}

func TestTokenOrderingAndDenseSeq(t *testing.T) {
	s := New(8)
	tokens := []string{"The", " sea", " turtle", " dives"}

	go func() {
		ctx := context.Background()
		for _, tok := range tokens {
			if err := s.Send(ctx, tok); err != nil {
				t.Errorf("Send failed: %v", err)
			}
		}
		s.Done("")
	}()

	events := collect(s)

	if len(events) != len(tokens)+1 {
		t.Fatalf("got %d events, want %d", len(events), len(tokens)+1)
	}

	for i, tok := range tokens {
		ev := events[i]
		if ev.Type != EventToken {
			t.Errorf("event %d type = %q, want %q", i, ev.Type, EventToken)
		}
		if ev.Content != tok {
			t.Errorf("event %d content = %q, want %q", i, ev.Content, tok)
		}
		if ev.Seq != i {
			t.Errorf("event %d seq = %d, want %d", i, ev.Seq, i)
		}
	}

	last := events[len(events)-1]
	if last.Type != EventDone {
		t.Errorf("terminal type = %q, want %q", last.Type, EventDone)
	}
	if last.Warning != "" {
		t.Errorf("unexpected warning %q", last.Warning)
	}
}

func TestExactlyOneTerminal(t *testing.T) {
	s := New(4)
	go func() {
		s.Send(context.Background(), "tok")
		s.Fail("upstream broke")
		// Late terminals must be swallowed, not panic or duplicate.
		s.Done("ignored")
		s.Fail("ignored")
	}()

	events := collect(s)

	terminals := 0
	for _, ev := range events {
		if ev.Type == EventDone || ev.Type == EventError {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("got %d terminal events, want 1", terminals)
	}

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Errorf("terminal type = %q, want %q", last.Type, EventError)
	}
	if last.Cause != "upstream broke" {
		t.Errorf("cause = %q, want %q", last.Cause, "upstream broke")
	}
	if last.Seq != 1 {
		t.Errorf("terminal seq = %d, want 1", last.Seq)
	}
}

func TestSendAfterTerminalIsNoop(t *testing.T) {
	s := New(4)
	go func() {
		s.Done("history write failed")
		if err := s.Send(context.Background(), "late"); err != nil {
			t.Errorf("late Send returned error: %v", err)
		}
	}()

	events := collect(s)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Warning != "history write failed" {
		t.Errorf("warning = %q", events[0].Warning)
	}
}

func TestSendHonorsContextCancellation(t *testing.T) {
	s := New(0) // unbuffered, nobody consuming
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, "tok"); err == nil {
		t.Fatal("Send on cancelled context should fail")
	}
	if s.Produced() != 0 {
		t.Errorf("Produced() = %d after failed send, want 0", s.Produced())
	}
}

func TestSeqRestartsPerStream(t *testing.T) {
	for i := 0; i < 2; i++ {
		s := New(2)
		go func() {
			s.Send(context.Background(), "a")
			s.Done("")
		}()
		events := collect(s)
		if events[0].Seq != 0 {
			t.Errorf("stream %d first seq = %d, want 0", i, events[0].Seq)
		}
	}
}
