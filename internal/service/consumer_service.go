package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archelon-assistant-be/internal/constant"
	"archelon-assistant-be/internal/dto"
	"archelon-assistant-be/internal/pkg/logger"
	"archelon-assistant-be/pkg/events"
	pktNats "archelon-assistant-be/pkg/nats"
	"archelon-assistant-be/pkg/rag/history"
	"archelon-assistant-be/pkg/utils"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Chunking parameters: ~1500 chars per chunk keeps each embedding call well
// under model context limits, 200 chars of overlap preserves sentence
// boundaries across cuts.
const (
	ingestChunkSize    = 1500
	ingestChunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the background ingestion worker. It drains the ingestion
// topic, chunks and embeds document content into the session's index, appends
// the completion marker turn, and announces completion on the event bus.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	store     vectorstore.Store
	history   *history.Loader
	natsPub   *pktNats.Publisher
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	store vectorstore.Store,
	historyLoader *history.Loader,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		store:     store,
		history:   historyLoader,
		natsPub:   natsPub,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal ingestion job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("ConsumerService", "Processing document ingestion", map[string]interface{}{
		"session_id": payload.SessionId.String(),
		"source_id":  payload.SourceId,
	})

	pieces := utils.SplitText(payload.Content, ingestChunkSize, ingestChunkOverlap)

	chunks := make([]vectorstore.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, vectorstore.Chunk{
			Text: piece,
			Metadata: map[string]string{
				vectorstore.SourceIdKey: payload.SourceId,
			},
		})
	}

	if err := cs.store.AddChunks(ctx, payload.UserId, payload.SessionId, chunks); err != nil {
		cs.logger.Error("ConsumerService", "Failed to index document chunks", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"source_id":  payload.SourceId,
			"error":      err.Error(),
		})
		msg.Nack() // Retriable: embedding provider or storage hiccup
		return
	}

	// The marker turn makes the ingestion visible in the conversation. Its
	// prefix is reserved, so the chat pipeline will never feed it to the
	// model as a question.
	notice := fmt.Sprintf("%s %s (%d chunks)", constant.IngestionNoticePrefix, payload.SourceId, len(chunks))
	if err := cs.history.AppendTurn(ctx, payload.UserId, payload.SessionId, constant.TurnRoleAssistant, notice); err != nil {
		// The chunks are already indexed; losing the notice is not worth a
		// duplicate ingestion.
		cs.logger.Warn("ConsumerService", "Failed to append ingestion marker turn", map[string]interface{}{
			"session_id": payload.SessionId.String(),
			"error":      err.Error(),
		})
	}

	if cs.natsPub != nil {
		event := events.IngestionCompleted{
			UserId:     payload.UserId,
			SessionId:  payload.SessionId,
			SourceId:   payload.SourceId,
			ChunkCount: len(chunks),
			OccurredAt: time.Now(),
		}
		if err := cs.natsPub.Publish(ctx, event); err != nil {
			cs.logger.Warn("ConsumerService", "Failed to publish ingestion completed event", map[string]interface{}{
				"session_id": payload.SessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	cs.logger.Info("ConsumerService", "Document ingested", map[string]interface{}{
		"session_id": payload.SessionId.String(),
		"source_id":  payload.SourceId,
		"chunks":     len(chunks),
	})
	msg.Ack()
}
