package service

import (
	"context"

	"archelon-assistant-be/internal/dto"
	"archelon-assistant-be/pkg/rag/history"
	"archelon-assistant-be/pkg/rag/orchestrator"
	"archelon-assistant-be/pkg/stream"

	"github.com/google/uuid"
)

type IChatService interface {
	// Stream answers one question; the caller consumes the returned stream
	// until it closes. Ownership is checked before any pipeline work starts.
	Stream(ctx context.Context, userId, sessionId uuid.UUID, message string) (*stream.Stream, error)

	History(ctx context.Context, userId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error)
}

type chatService struct {
	sessions     ISessionService
	orchestrator *orchestrator.Orchestrator
	history      *history.Loader
}

func NewChatService(
	sessions ISessionService,
	orch *orchestrator.Orchestrator,
	historyLoader *history.Loader,
) IChatService {
	return &chatService{
		sessions:     sessions,
		orchestrator: orch,
		history:      historyLoader,
	}
}

func (s *chatService) Stream(ctx context.Context, userId, sessionId uuid.UUID, message string) (*stream.Stream, error) {
	if err := s.sessions.EnsureOwned(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	return s.orchestrator.Answer(ctx, orchestrator.Request{
		UserId:    userId,
		SessionId: sessionId,
		Question:  message,
	}), nil
}

func (s *chatService) History(ctx context.Context, userId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error) {
	if err := s.sessions.EnsureOwned(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	turns, err := s.history.RecentTurns(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}

	res := make([]dto.GetChatHistoryResponse, 0, len(turns))
	for _, turn := range turns {
		res = append(res, dto.GetChatHistoryResponse{
			Id:        turn.Id,
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}
	return res, nil
}
