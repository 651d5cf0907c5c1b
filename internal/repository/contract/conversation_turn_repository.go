package contract

import (
	"context"

	"archelon-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// ConversationTurnRepository is the append-only message log per (user,
// session) pair. Turns are immutable once written.
type ConversationTurnRepository interface {
	// Append writes one turn. It never fails silently: a write failure
	// propagates so the caller can retry or degrade.
	Append(ctx context.Context, turn *entity.ConversationTurn) error

	// RecentTurns returns the most recent limit turns in chronological
	// ascending order. A session with no history yields an empty slice.
	RecentTurns(ctx context.Context, userId, sessionId uuid.UUID, limit int) ([]*entity.ConversationTurn, error)

	// Clear deletes all turns for the session.
	Clear(ctx context.Context, userId, sessionId uuid.UUID) error

	Count(ctx context.Context, userId, sessionId uuid.UUID) (int64, error)
}
