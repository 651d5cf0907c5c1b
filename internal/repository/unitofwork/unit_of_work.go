package unitofwork

import (
	"context"

	"archelon-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ConversationTurnRepository() contract.ConversationTurnRepository
}
