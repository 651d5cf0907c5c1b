package history

import (
	"context"
	"time"

	"archelon-assistant-be/internal/constant"
	"archelon-assistant-be/internal/entity"
	"archelon-assistant-be/internal/repository/unitofwork"
	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/keylock"
	"archelon-assistant-be/pkg/llm"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// Loader is the bounded conversation memory for one assistant deployment. It
// reads the most recent window of turns for LLM context and appends new turns.
// Appends for the same session are serialized so concurrent requests cannot
// interleave their turn pairs.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
	locks      *keylock.KeyedMutex
	window     int
}

// NewLoader creates a new history loader. window bounds how many turns a
// single load returns; zero or negative falls back to the default.
func NewLoader(uowFactory unitofwork.RepositoryFactory, window int) *Loader {
	if window <= 0 {
		window = constant.DefaultHistoryWindow
	}
	return &Loader{
		uowFactory: uowFactory,
		locks:      keylock.New(),
		window:     window,
	}
}

func (l *Loader) Window() int {
	return l.window
}

// RecentMessages loads the last window turns in chronological order, mapped to
// LLM chat messages. An unknown session yields an empty slice, not an error.
func (l *Loader) RecentMessages(ctx context.Context, userId, sessionId uuid.UUID) ([]llm.Message, error) {
	turns, err := l.RecentTurns(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == constant.TurnRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: turn.Content,
		})
	}
	return messages, nil
}

// RecentTurns is RecentMessages without the LLM mapping, for API consumers
// that want the raw turn records.
func (l *Loader) RecentTurns(ctx context.Context, userId, sessionId uuid.UUID) ([]*entity.ConversationTurn, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)
	return uow.ConversationTurnRepository().RecentTurns(ctx, userId, sessionId, l.window)
}

// AppendTurn persists one turn. A write failure surfaces as a PersistenceFault
// so callers can decide whether it is fatal for their flow.
func (l *Loader) AppendTurn(ctx context.Context, userId, sessionId uuid.UUID, role, content string) error {
	key := vectorstore.ScopedKey(userId, sessionId)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	uow := l.uowFactory.NewUnitOfWork(ctx)
	turn := &entity.ConversationTurn{
		Id:        uuid.New(),
		UserId:    userId,
		SessionId: sessionId,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	return uow.ConversationTurnRepository().Append(ctx, turn)
}

// AppendExchange persists a question/answer pair in order under one session
// lock, so no other writer can slot a turn between them.
func (l *Loader) AppendExchange(ctx context.Context, userId, sessionId uuid.UUID, question, answer string) error {
	key := vectorstore.ScopedKey(userId, sessionId)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	uow := l.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ConversationTurnRepository()

	now := time.Now()
	userTurn := &entity.ConversationTurn{
		Id:        uuid.New(),
		UserId:    userId,
		SessionId: sessionId,
		Role:      constant.TurnRoleUser,
		Content:   question,
		CreatedAt: now,
	}
	if err := repo.Append(ctx, userTurn); err != nil {
		return err
	}

	assistantTurn := &entity.ConversationTurn{
		Id:        uuid.New(),
		UserId:    userId,
		SessionId: sessionId,
		Role:      constant.TurnRoleAssistant,
		Content:   answer,
		CreatedAt: now,
	}
	if err := repo.Append(ctx, assistantTurn); err != nil {
		return fault.Persistence("answer turn write failed after question turn", err)
	}
	return nil
}

// Clear removes all turns for the session.
func (l *Loader) Clear(ctx context.Context, userId, sessionId uuid.UUID) error {
	key := vectorstore.ScopedKey(userId, sessionId)
	l.locks.Lock(key)
	defer l.locks.Unlock(key)

	uow := l.uowFactory.NewUnitOfWork(ctx)
	return uow.ConversationTurnRepository().Clear(ctx, userId, sessionId)
}
