// Package orchestrator composes one conversational answer: reformulation,
// retrieval, grounded generation, and history persistence, exposed to the
// transport layer as a token stream.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"archelon-assistant-be/internal/constant"
	"archelon-assistant-be/internal/pkg/logger"
	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/llm"
	"archelon-assistant-be/pkg/rag/prompt"
	"archelon-assistant-be/pkg/rag/reformulate"
	"archelon-assistant-be/pkg/stream"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// State is one step of the per-request pipeline. Transitions are strictly
// forward; ERRORED is reachable from every state before PERSISTING.
type State string

const (
	StateReformulating State = "REFORMULATING"
	StateRetrieving    State = "RETRIEVING"
	StateGenerating    State = "GENERATING"
	StatePersisting    State = "PERSISTING"
	StateDone          State = "DONE"
	StateErrored       State = "ERRORED"
)

// persistTimeout bounds the best-effort history write that runs after the
// request context is already dead (client disconnect mid-stream).
const persistTimeout = 10 * time.Second

type Request struct {
	UserId    uuid.UUID
	SessionId uuid.UUID
	Question  string
}

// HistoryStore is the slice of the conversation memory the pipeline needs.
// history.Loader implements it.
type HistoryStore interface {
	RecentMessages(ctx context.Context, userId, sessionId uuid.UUID) ([]llm.Message, error)
	AppendTurn(ctx context.Context, userId, sessionId uuid.UUID, role, content string) error
	AppendExchange(ctx context.Context, userId, sessionId uuid.UUID, question, answer string) error
}

type Orchestrator struct {
	provider     llm.Provider
	store        vectorstore.Store
	reformulator *reformulate.Reformulator
	history      HistoryStore
	logger       logger.ILogger
	retrievalK   int
	streamBuffer int
}

func New(
	provider llm.Provider,
	store vectorstore.Store,
	reformulator *reformulate.Reformulator,
	historyStore HistoryStore,
	log logger.ILogger,
	retrievalK int,
) *Orchestrator {
	if retrievalK <= 0 {
		retrievalK = constant.DefaultRetrievalK
	}
	return &Orchestrator{
		provider:     provider,
		store:        store,
		reformulator: reformulator,
		history:      historyStore,
		logger:       log,
		retrievalK:   retrievalK,
		streamBuffer: 32,
	}
}

// Answer runs the pipeline for one request and returns its stream. The caller
// must drain the stream until it closes; cancelling ctx aborts the in-flight
// generation. Each call is independent, so requests for different sessions
// proceed fully in parallel.
func (o *Orchestrator) Answer(ctx context.Context, req Request) *stream.Stream {
	out := stream.New(o.streamBuffer)
	go o.run(ctx, req, out)
	return out
}

func (o *Orchestrator) run(ctx context.Context, req Request, out *stream.Stream) {
	if strings.TrimSpace(req.Question) == "" {
		o.fail(req, out, StateReformulating, fault.Validation("question is empty"))
		return
	}

	// Ingestion-completion notices are not natural language. They are stored
	// so the conversation reflects them, but must never reach the model as a
	// question.
	if strings.HasPrefix(req.Question, constant.IngestionNoticePrefix) {
		o.persistNotice(ctx, req, out)
		return
	}

	state := o.transition(req, "", StateReformulating)

	recent, err := o.history.RecentMessages(ctx, req.UserId, req.SessionId)
	if err != nil {
		o.fail(req, out, state, fault.Persistence("history load failed", err))
		return
	}

	standalone, err := o.reformulator.Reformulate(ctx, recent, req.Question)
	if err != nil {
		// Non-fatal: a failed rewrite degrades retrieval quality, not the
		// whole request.
		o.logger.Warn("Orchestrator", "Reformulation failed, using raw question", map[string]interface{}{
			"session_id": req.SessionId.String(),
			"error":      err.Error(),
		})
		standalone = req.Question
	}

	state = o.transition(req, state, StateRetrieving)

	chunks, err := o.store.Search(ctx, req.UserId, req.SessionId, standalone, o.retrievalK)
	if err != nil {
		if fault.Is(err, fault.KindNotFound) {
			// Session has no index yet; proceed ungrounded.
			chunks = nil
		} else {
			o.fail(req, out, state, err)
			return
		}
	}

	state = o.transition(req, state, StateGenerating)

	grounded := prompt.NewGroundedBuilder(chunks, standalone).Build()
	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: "system", Content: prompt.SystemInstruction})
	messages = append(messages, recent...)
	messages = append(messages, llm.Message{Role: "user", Content: grounded})

	deltas, err := o.provider.ChatStream(ctx, messages)
	if err != nil {
		o.fail(req, out, state, fault.Generation("generation service unavailable", err))
		return
	}

	var answer strings.Builder
	var streamErr error
	for delta := range deltas {
		if delta.Err != nil {
			streamErr = delta.Err
			break
		}
		if delta.Done {
			break
		}
		if delta.Content == "" {
			continue
		}
		answer.WriteString(delta.Content)
		if sendErr := out.Send(ctx, delta.Content); sendErr != nil {
			streamErr = sendErr
			break
		}
	}
	// The provider closes the channel after its terminal delta; drain so its
	// goroutine never blocks on an abandoned send.
	for range deltas {
	}

	if streamErr != nil {
		// Mid-stream fault or client disconnect. What the user already saw is
		// the history truth: persist the partial answer when any token made
		// it out, skip persistence entirely when none did.
		if out.Produced() > 0 {
			o.transition(req, state, StatePersisting)
			if perr := o.persistExchange(ctx, req, answer.String()); perr != nil {
				o.logger.Error("Orchestrator", "Failed to persist partial answer", map[string]interface{}{
					"session_id": req.SessionId.String(),
					"error":      perr.Error(),
				})
			}
		}
		o.fail(req, out, StateGenerating, fault.Generation("generation aborted", streamErr))
		return
	}

	state = o.transition(req, state, StatePersisting)

	var warning string
	if err := o.persistExchange(ctx, req, answer.String()); err != nil {
		// Best-effort by contract: the answer is already with the caller.
		warning = "answer delivered but could not be saved to history"
		o.logger.Error("Orchestrator", "History persistence failed", map[string]interface{}{
			"session_id": req.SessionId.String(),
			"error":      err.Error(),
		})
	}

	o.transition(req, state, StateDone)
	out.Done(warning)
}

// persistNotice stores an ingestion marker as an assistant turn and completes
// the stream with zero tokens.
func (o *Orchestrator) persistNotice(ctx context.Context, req Request, out *stream.Stream) {
	state := o.transition(req, "", StatePersisting)
	if err := o.history.AppendTurn(ctx, req.UserId, req.SessionId, constant.TurnRoleAssistant, req.Question); err != nil {
		o.fail(req, out, state, err)
		return
	}
	o.transition(req, state, StateDone)
	out.Done("")
}

// persistExchange writes the question/answer pair. When the request context is
// already dead (client disconnect) the write runs on a detached deadline
// context so it still lands.
func (o *Orchestrator) persistExchange(ctx context.Context, req Request, answer string) error {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
	}
	return o.history.AppendExchange(ctx, req.UserId, req.SessionId, req.Question, answer)
}

func (o *Orchestrator) transition(req Request, from, to State) State {
	o.logger.Debug("Orchestrator", "State transition", map[string]interface{}{
		"session_id": req.SessionId.String(),
		"from":       string(from),
		"to":         string(to),
	})
	return to
}

func (o *Orchestrator) fail(req Request, out *stream.Stream, from State, err error) {
	o.transition(req, from, StateErrored)
	o.logger.Error("Orchestrator", "Request failed", map[string]interface{}{
		"session_id": req.SessionId.String(),
		"state":      string(from),
		"error":      err.Error(),
	})
	out.Fail(err.Error())
}
