package mapper

import (
	"archelon-assistant-be/internal/entity"
	"archelon-assistant-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) SessionToModel(e *entity.ChatSession) *model.ChatSession {
	s := &model.ChatSession{
		Id:        e.Id,
		UserId:    e.UserId,
		Title:     e.Title,
		CreatedAt: e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		s.UpdatedAt = *e.UpdatedAt
	}
	return s
}

func (m *ChatMapper) SessionToEntity(s *model.ChatSession) *entity.ChatSession {
	e := &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
	}
	if !s.UpdatedAt.IsZero() {
		updatedAt := s.UpdatedAt
		e.UpdatedAt = &updatedAt
	}
	return e
}

func (m *ChatMapper) TurnToModel(e *entity.ConversationTurn) *model.ConversationTurn {
	return &model.ConversationTurn{
		Id:        e.Id,
		UserId:    e.UserId,
		SessionId: e.SessionId,
		Role:      e.Role,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		Sequence:  e.Sequence,
	}
}

func (m *ChatMapper) TurnToEntity(t *model.ConversationTurn) *entity.ConversationTurn {
	return &entity.ConversationTurn{
		Id:        t.Id,
		UserId:    t.UserId,
		SessionId: t.SessionId,
		Role:      t.Role,
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
		Sequence:  t.Sequence,
	}
}
