package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn is one immutable message in a session's history. Ordering
// is by CreatedAt with the insertion sequence breaking ties.
type ConversationTurn struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	SessionId uuid.UUID
	Role      string // constant.TurnRoleUser | constant.TurnRoleAssistant
	Content   string
	CreatedAt time.Time
	Sequence  int64
}
