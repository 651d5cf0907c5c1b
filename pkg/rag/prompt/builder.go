package prompt

import (
	"fmt"
	"strings"

	"archelon-assistant-be/pkg/vectorstore"
)

// SystemInstruction is the fixed persona for every generation. History is
// attached as chat messages, not inlined here.
const SystemInstruction = "You are the code assistant named Archelon AI. " +
	"Use the most recent chat history to answer questions when necessary."

// GroundedBuilder composes the user-role prompt for one generation: retrieved
// reference chunks, answering guidelines, and the standalone question.
type GroundedBuilder struct {
	chunks   []vectorstore.ScoredChunk
	question string
}

func NewGroundedBuilder(chunks []vectorstore.ScoredChunk, question string) *GroundedBuilder {
	return &GroundedBuilder{
		chunks:   chunks,
		question: question,
	}
}

func (b *GroundedBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuestion(&prompt)

	return prompt.String()
}

func (b *GroundedBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.chunks) == 0 {
		return
	}

	prompt.WriteString("<reference_material>\n")
	for i, scored := range b.chunks {
		prompt.WriteString(fmt.Sprintf("[%d] ", i+1))
		prompt.WriteString(strings.TrimSpace(scored.Chunk.Text))
		prompt.WriteString("\n")
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *GroundedBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	if len(b.chunks) > 0 {
		prompt.WriteString("- Prefer the reference material when it covers the question\n")
		prompt.WriteString("- If the material does not cover the question, answer from general knowledge and do not pretend it came from the material\n")
	} else {
		prompt.WriteString("- No reference material is available for this question; answer from the conversation and general knowledge\n")
	}
	prompt.WriteString("- Answer the question directly, do not restate it\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *GroundedBuilder) writeUserQuestion(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n")
}
