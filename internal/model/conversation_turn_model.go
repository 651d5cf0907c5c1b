package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn rows are append-only; Sequence is a bigserial that breaks
// timestamp ties so reads are always repeatable in insertion order.
type ConversationTurn struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_turns_scope"`
	SessionId uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_turns_scope"`
	Role      string    `gorm:"type:varchar(50);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	Sequence  int64     `gorm:"autoIncrement;uniqueIndex"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
