package service

import (
	"context"
	"strings"
	"time"

	"archelon-assistant-be/internal/constant"
	"archelon-assistant-be/internal/dto"
	"archelon-assistant-be/internal/entity"
	"archelon-assistant-be/internal/pkg/logger"
	"archelon-assistant-be/internal/repository/memory"
	"archelon-assistant-be/internal/repository/specification"
	"archelon-assistant-be/internal/repository/unitofwork"
	"archelon-assistant-be/pkg/events"
	"archelon-assistant-be/pkg/fault"
	pktNats "archelon-assistant-be/pkg/nats"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]dto.GetAllSessionsResponse, error)
	Rename(ctx context.Context, userId uuid.UUID, req *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error)
	Delete(ctx context.Context, userId, id uuid.UUID) error
	EnsureOwned(ctx context.Context, userId, sessionId uuid.UUID) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
	store      vectorstore.Store
	ownership  *memory.OwnershipCache
	natsPub    *pktNats.Publisher
	logger     logger.ILogger
}

func NewSessionService(
	uowFactory unitofwork.RepositoryFactory,
	store vectorstore.Store,
	ownership *memory.OwnershipCache,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
		store:      store,
		ownership:  ownership,
		natsPub:    natsPub,
		logger:     log,
	}
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = constant.DefaultSessionTitle
	}

	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fault.Persistence("failed to create session", err)
	}

	// Seed the session's index eagerly so the first chat turn never races
	// index creation.
	if err := s.store.CreateOrLoad(ctx, userId, session.Id, nil); err != nil {
		s.logger.Warn("SessionService", "Index seeding failed, will be created lazily", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}

	s.ownership.Save(session.Id.String(), userId.String())

	return &dto.CreateSessionResponse{Id: session.Id, Title: session.Title}, nil
}

func (s *sessionService) GetAll(ctx context.Context, userId uuid.UUID) ([]dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]dto.GetAllSessionsResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, dto.GetAllSessionsResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	return res, nil
}

func (s *sessionService) Rename(ctx context.Context, userId uuid.UUID, req *dto.RenameSessionRequest) (*dto.RenameSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	session, err := repo.FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fault.NotFound("session not found")
	}

	session.Title = req.Title
	now := time.Now()
	session.UpdatedAt = &now

	if err := repo.Update(ctx, session); err != nil {
		return nil, fault.Persistence("failed to rename session", err)
	}
	return &dto.RenameSessionResponse{Id: session.Id}, nil
}

// Delete removes the session row, its history and its vector index.
// Idempotent: deleting an unknown session is a no-op.
func (s *sessionService) Delete(ctx context.Context, userId, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := uow.ConversationTurnRepository().Clear(ctx, userId, id); err != nil {
		return fault.Persistence("failed to clear session history", err)
	}

	if _, err := s.store.Delete(ctx, userId, id); err != nil {
		return err
	}

	if err := uow.ChatSessionRepository().Delete(ctx, id); err != nil {
		return fault.Persistence("failed to delete session", err)
	}

	s.ownership.Delete(id.String())

	if s.natsPub != nil {
		event := events.SessionDeleted{UserId: userId, SessionId: id, OccurredAt: time.Now()}
		if err := s.natsPub.Publish(ctx, event); err != nil {
			s.logger.Warn("SessionService", "Failed to publish session deleted event", map[string]interface{}{
				"session_id": id.String(),
				"error":      err.Error(),
			})
		}
	}

	return nil
}

// EnsureOwned verifies the session exists and belongs to userId. Hot paths
// hit the ownership cache; misses fall through to the database.
func (s *sessionService) EnsureOwned(ctx context.Context, userId, sessionId uuid.UUID) error {
	if owner, ok := s.ownership.Get(sessionId.String()); ok {
		if owner == userId.String() {
			return nil
		}
		return fault.NotFound("session not found")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return fault.NotFound("session not found")
	}

	s.ownership.Save(sessionId.String(), userId.String())
	return nil
}
