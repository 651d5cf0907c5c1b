package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", NotFound("session missing"), KindNotFound},
		{"storage", Storage("index unreadable", errors.New("io")), KindStorage},
		{"persistence", Persistence("write failed", errors.New("db")), KindPersistence},
		{"generation", Generation("upstream down", nil), KindGeneration},
		{"validation", Validation("missing id"), KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.kind) {
				t.Errorf("Is(%v, %v) = false, want true", tt.err, tt.kind)
			}
			if Is(tt.err, KindStorage) && tt.kind != KindStorage {
				t.Errorf("kind %v wrongly matches KindStorage", tt.kind)
			}
		})
	}
}

func TestWrappedFaultSurvivesErrorsChain(t *testing.T) {
	inner := Storage("corrupt index", errors.New("bad header"))
	outer := fmt.Errorf("request failed: %w", inner)

	if !Is(outer, KindStorage) {
		t.Fatal("kind lost through wrapping")
	}
	if Is(outer, KindGeneration) {
		t.Fatal("wrong kind matched through wrapping")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Generation("stream aborted", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
}

func TestNilCauseMessage(t *testing.T) {
	err := NotFound("no such session")
	if err.Error() == "" {
		t.Fatal("empty error message")
	}
}
