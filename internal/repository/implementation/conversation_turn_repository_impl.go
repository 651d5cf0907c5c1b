package implementation

import (
	"context"

	"archelon-assistant-be/internal/entity"
	"archelon-assistant-be/internal/mapper"
	"archelon-assistant-be/internal/model"
	"archelon-assistant-be/internal/repository/contract"
	"archelon-assistant-be/pkg/fault"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewConversationTurnRepository(db *gorm.DB) contract.ConversationTurnRepository {
	return &ConversationTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ConversationTurnRepositoryImpl) Append(ctx context.Context, turn *entity.ConversationTurn) error {
	m := r.mapper.TurnToModel(turn)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fault.Persistence("append conversation turn", err)
	}
	*turn = *r.mapper.TurnToEntity(m)
	return nil
}

// RecentTurns fetches the newest limit rows and reverses them in memory, so
// the caller always sees a chronological ascending window.
func (r *ConversationTurnRepositoryImpl) RecentTurns(ctx context.Context, userId, sessionId uuid.UUID, limit int) ([]*entity.ConversationTurn, error) {
	if limit <= 0 {
		return []*entity.ConversationTurn{}, nil
	}

	var models []*model.ConversationTurn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("session_id = ?", sessionId).
		Order("created_at DESC").
		Order("sequence DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.ConversationTurn, len(models))
	for i, m := range models {
		entities[len(models)-1-i] = r.mapper.TurnToEntity(m)
	}
	return entities, nil
}

func (r *ConversationTurnRepositoryImpl) Clear(ctx context.Context, userId, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("session_id = ?", sessionId).
		Delete(&model.ConversationTurn{}).Error
}

func (r *ConversationTurnRepositoryImpl) Count(ctx context.Context, userId, sessionId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ConversationTurn{}).
		Where("user_id = ?", userId).
		Where("session_id = ?", sessionId).
		Count(&count).Error
	return count, err
}
