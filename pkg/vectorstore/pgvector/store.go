// Package pgvector backs the vector index store with a pgvector column in
// Postgres. A session's "index" is the set of rows scoped to its
// (user_id, session_id) pair; cosine distance ranking runs in the database.
package pgvector

import (
	"context"
	"fmt"

	"archelon-assistant-be/internal/model"
	"archelon-assistant-be/pkg/embedding"
	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/keylock"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/google/uuid"
	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	db       *gorm.DB
	embedder embedding.Provider
	locks    *keylock.KeyedMutex
}

var _ vectorstore.Store = &Store{}

func New(db *gorm.DB, embedder embedding.Provider) *Store {
	return &Store{
		db:       db,
		embedder: embedder,
		locks:    keylock.New(),
	}
}

func (s *Store) scoped(ctx context.Context, userId, sessionId uuid.UUID) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("session_id = ?", sessionId)
}

func (s *Store) count(ctx context.Context, userId, sessionId uuid.UUID) (int64, error) {
	var n int64
	err := s.scoped(ctx, userId, sessionId).Model(&model.ChunkEmbedding{}).Count(&n).Error
	if err != nil {
		return 0, fault.Storage("count chunk embeddings", err)
	}
	return n, nil
}

func (s *Store) Exists(ctx context.Context, userId, sessionId uuid.UUID) (bool, error) {
	n, err := s.count(ctx, userId, sessionId)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateOrLoad(ctx context.Context, userId, sessionId uuid.UUID, initial []vectorstore.Chunk) error {
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	n, err := s.count(ctx, userId, sessionId)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if len(initial) > 0 {
		return s.insertChunks(ctx, userId, sessionId, initial)
	}
	return s.seedPlaceholder(ctx, userId, sessionId)
}

func (s *Store) AddChunks(ctx context.Context, userId, sessionId uuid.UUID, chunks []vectorstore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	return s.insertChunks(ctx, userId, sessionId, chunks)
}

func (s *Store) insertChunks(ctx context.Context, userId, sessionId uuid.UUID, chunks []vectorstore.Chunk) error {
	rows := make([]*model.ChunkEmbedding, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fault.Generation("embed chunk", err)
		}
		metadata := make(datatypes.JSONMap, len(chunk.Metadata))
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		rows = append(rows, &model.ChunkEmbedding{
			Id:             uuid.New(),
			UserId:         userId,
			SessionId:      sessionId,
			Document:       chunk.Text,
			SourceMetadata: metadata,
			EmbeddingValue: pgv.NewVector(vec),
		})
	}
	if err := s.db.WithContext(ctx).Create(rows).Error; err != nil {
		return fault.Storage("insert chunk embeddings", err)
	}
	return nil
}

func (s *Store) seedPlaceholder(ctx context.Context, userId, sessionId uuid.UUID) error {
	vec, err := s.embedder.Embed(ctx, vectorstore.PlaceholderContent)
	if err != nil {
		return fault.Generation("embed placeholder chunk", err)
	}
	row := &model.ChunkEmbedding{
		Id:             uuid.New(),
		UserId:         userId,
		SessionId:      sessionId,
		Document:       vectorstore.PlaceholderContent,
		SourceMetadata: datatypes.JSONMap{vectorstore.PlaceholderMetaKey: "true"},
		EmbeddingValue: pgv.NewVector(vec),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fault.Storage("seed placeholder chunk", err)
	}
	return nil
}

func (s *Store) RemoveBySourceKey(ctx context.Context, userId, sessionId uuid.UUID, key, value string) (int, error) {
	lockKey := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	n, err := s.count(ctx, userId, sessionId)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fault.NotFound(fmt.Sprintf("no index for session %s", sessionId))
	}

	removed := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("user_id = ?", userId).
			Where("session_id = ?", sessionId).
			Where("source_metadata ->> ? = ?", key, value).
			Delete(&model.ChunkEmbedding{})
		if res.Error != nil {
			return res.Error
		}
		removed = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, fault.Storage("delete chunks by metadata", err)
	}

	// Keep the index-always-non-empty invariant.
	n, err = s.count(ctx, userId, sessionId)
	if err != nil {
		return removed, err
	}
	if n == 0 {
		if err := s.seedPlaceholder(ctx, userId, sessionId); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) Search(ctx context.Context, userId, sessionId uuid.UUID, query string, k int) ([]vectorstore.ScoredChunk, error) {
	if k <= 0 {
		k = 4
	}

	// Lazy creation on first query mirrors the chromem backend.
	if err := s.CreateOrLoad(ctx, userId, sessionId, nil); err != nil {
		return nil, err
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fault.Generation("embed query", err)
	}

	type scoredRow struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var rows []scoredRow

	queryVector := pgv.NewVector(queryVec)
	err = s.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("user_id = ?", userId).
		Where("session_id = ?", sessionId).
		Where("source_metadata ->> ? IS NULL", vectorstore.PlaceholderMetaKey).
		Order("similarity DESC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fault.Storage("similarity query", err)
	}

	scored := make([]vectorstore.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		metadata := make(map[string]string, len(row.SourceMetadata))
		for mk, mv := range row.SourceMetadata {
			if str, ok := mv.(string); ok {
				metadata[mk] = str
			}
		}
		scored = append(scored, vectorstore.ScoredChunk{
			Chunk: vectorstore.Chunk{
				Text:     row.Document,
				Metadata: metadata,
			},
			Score: float32(row.Similarity),
		})
	}
	return scored, nil
}

func (s *Store) Delete(ctx context.Context, userId, sessionId uuid.UUID) (bool, error) {
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	res := s.scoped(ctx, userId, sessionId).Delete(&model.ChunkEmbedding{})
	if res.Error != nil {
		return false, fault.Storage("delete session index", res.Error)
	}
	return res.RowsAffected > 0, nil
}
