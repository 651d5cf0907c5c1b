package prompt

import (
	"strings"
	"testing"

	"archelon-assistant-be/pkg/vectorstore"
)

func TestBuildWithChunks(t *testing.T) {
	chunks := []vectorstore.ScoredChunk{
		{Chunk: vectorstore.Chunk{Text: "Leatherbacks dive below 1000 m."}, Score: 0.91},
		{Chunk: vectorstore.Chunk{Text: "Green turtles graze on seagrass."}, Score: 0.84},
	}

	out := NewGroundedBuilder(chunks, "How deep do leatherbacks dive?").Build()

	if !strings.Contains(out, "<reference_material>") {
		t.Error("missing reference_material section")
	}
	if !strings.Contains(out, "[1] Leatherbacks dive below 1000 m.") {
		t.Error("first chunk not numbered into reference material")
	}
	if !strings.Contains(out, "[2] Green turtles graze on seagrass.") {
		t.Error("second chunk missing")
	}
	if !strings.Contains(out, "<user_question>\nHow deep do leatherbacks dive?") {
		t.Error("question not embedded")
	}
}

func TestBuildWithoutChunks(t *testing.T) {
	out := NewGroundedBuilder(nil, "Hello there").Build()

	if strings.Contains(out, "<reference_material>") {
		t.Error("reference_material section present despite empty retrieval")
	}
	if !strings.Contains(out, "No reference material is available") {
		t.Error("ungrounded guideline missing")
	}
	if !strings.Contains(out, "Hello there") {
		t.Error("question missing")
	}
}

func TestSystemInstructionNamesAssistant(t *testing.T) {
	if !strings.Contains(SystemInstruction, "Archelon AI") {
		t.Error("persona missing from system instruction")
	}
}
