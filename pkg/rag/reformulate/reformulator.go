// Package reformulate rewrites context-dependent follow-up questions into
// standalone ones, so similarity search works on questions like "how do I
// delete it?" whose subject lives two turns back.
package reformulate

import (
	"context"
	"strings"

	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/llm"
)

// instruction is deliberately narrow: the model must return a question, never
// an answer, and must not invent content beyond resolving references.
const instruction = "Given the conversation above, rewrite the user's latest question as a single standalone question that can be understood without the conversation. " +
	"Resolve pronouns and references (it, that, the previous one) using the conversation. " +
	"Do NOT answer the question. Do NOT add information that is not implied by it. " +
	"Reply with the rewritten question only, no preamble."

type Reformulator struct {
	provider llm.Provider
}

func NewReformulator(provider llm.Provider) *Reformulator {
	return &Reformulator{
		provider: provider,
	}
}

// Reformulate returns a standalone version of rawQuestion. With no history the
// question is already standalone and is returned unchanged without calling the
// model. A provider error or a blank/degenerate completion comes back as a
// GenerationFault; callers are expected to treat that as non-fatal and fall
// back to rawQuestion.
func (r *Reformulator) Reformulate(ctx context.Context, recentTurns []llm.Message, rawQuestion string) (string, error) {
	if len(recentTurns) == 0 {
		return rawQuestion, nil
	}

	messages := make([]llm.Message, 0, len(recentTurns)+2)
	messages = append(messages, recentTurns...)
	messages = append(messages,
		llm.Message{Role: "user", Content: rawQuestion},
		llm.Message{Role: "system", Content: instruction},
	)

	out, err := r.provider.Chat(ctx, messages, llm.WithTemperature(0))
	if err != nil {
		return "", fault.Generation("reformulation call failed", err)
	}

	standalone := sanitize(out)
	if standalone == "" {
		return "", fault.Generation("reformulation returned blank output", nil)
	}
	return standalone, nil
}

// sanitize strips the decoration small models like to wrap short completions
// in: whitespace, surrounding quotes, a "Standalone question:" style label.
func sanitize(out string) string {
	s := strings.TrimSpace(out)

	// Keep only the first non-empty line; some models append commentary.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}

	for _, label := range []string{"Standalone question:", "Rewritten question:", "Question:"} {
		if rest, ok := strings.CutPrefix(s, label); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
