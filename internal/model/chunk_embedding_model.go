package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkEmbedding struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID         `gorm:"type:uuid;not null;index:idx_chunk_embeddings_scope"`
	SessionId      uuid.UUID         `gorm:"type:uuid;not null;index:idx_chunk_embeddings_scope"`
	Document       string            `gorm:"type:text;not null"`
	SourceMetadata datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text dimensionality
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
