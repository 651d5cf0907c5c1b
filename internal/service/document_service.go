package service

import (
	"context"
	"encoding/json"

	"archelon-assistant-be/internal/dto"
	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IDocumentService interface {
	// Ingest queues the document for chunking and embedding. The caller gets
	// an ack immediately; completion is announced via notification events.
	Ingest(ctx context.Context, userId, sessionId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)

	// Remove deletes every chunk sourced from sourceId out of the session's
	// index, synchronously.
	Remove(ctx context.Context, userId, sessionId uuid.UUID, sourceId string) (*dto.RemoveDocumentResponse, error)
}

type documentService struct {
	sessions  ISessionService
	store     vectorstore.Store
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewDocumentService(
	sessions ISessionService,
	store vectorstore.Store,
	pubSub *gochannel.GoChannel,
	topicName string,
) IDocumentService {
	return &documentService{
		sessions:  sessions,
		store:     store,
		pubSub:    pubSub,
		topicName: topicName,
	}
}

func (s *documentService) Ingest(ctx context.Context, userId, sessionId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	if err := s.sessions.EnsureOwned(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.IngestJobMessage{
		UserId:    userId,
		SessionId: sessionId,
		SourceId:  req.SourceId,
		Content:   req.Content,
	})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		return nil, fault.Persistence("failed to queue ingestion job", err)
	}

	return &dto.IngestDocumentResponse{SourceId: req.SourceId, Queued: true}, nil
}

func (s *documentService) Remove(ctx context.Context, userId, sessionId uuid.UUID, sourceId string) (*dto.RemoveDocumentResponse, error) {
	if err := s.sessions.EnsureOwned(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	removed, err := s.store.RemoveBySourceKey(ctx, userId, sessionId, vectorstore.SourceIdKey, sourceId)
	if err != nil {
		return nil, err
	}

	return &dto.RemoveDocumentResponse{SourceId: sourceId, RemovedChunks: removed}, nil
}
