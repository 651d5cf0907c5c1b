// Package vectorstore defines the per-(user, session) similarity index owned
// by the assistant core. Each session gets one isolated, persistent index;
// backends guarantee the index is never empty by seeding a placeholder chunk,
// so callers never branch on emptiness.
package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

const (
	// SourceIdKey is the metadata key used to address chunks for removal.
	SourceIdKey = "sourceId"

	// PlaceholderMetaKey marks the inert seeding chunk. Search never returns
	// chunks carrying this key.
	PlaceholderMetaKey = "init"

	// PlaceholderContent is the text of the seeding chunk. Some similarity
	// index implementations cannot be initialized over an empty corpus, so an
	// "empty" index holds exactly this one document.
	PlaceholderContent = "[INDEX INIT]"
)

// Chunk is a normalized unit of retrievable content produced by the external
// chunker. Metadata carries at least SourceIdKey for sourced content.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// ScoredChunk pairs a retrieved chunk with its similarity score (1.0 = identical).
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Store owns one similarity index per (user, session) pair. Mutations for the
// same session are serialized internally; different sessions proceed in
// parallel. Reads never observe a partially written index.
type Store interface {
	// Exists reports whether a persisted index is present and readable.
	Exists(ctx context.Context, userId, sessionId uuid.UUID) (bool, error)

	// CreateOrLoad is idempotent: it loads the session's index, creating it
	// first if absent. A fresh index is seeded with initial, or with the
	// placeholder chunk when initial is empty.
	CreateOrLoad(ctx context.Context, userId, sessionId uuid.UUID, initial []Chunk) error

	// AddChunks appends embedded chunks to the session's index, creating it
	// first if absent (same seeding rule).
	AddChunks(ctx context.Context, userId, sessionId uuid.UUID, chunks []Chunk) error

	// RemoveBySourceKey removes every chunk whose metadata matches key=value
	// and returns how many were removed. If removal empties the index it is
	// reseeded with the placeholder. Returns a NotFound fault when the session
	// has no index.
	RemoveBySourceKey(ctx context.Context, userId, sessionId uuid.UUID, key, value string) (int, error)

	// Search returns at most k chunks ranked by descending similarity to
	// query. Placeholder chunks are excluded even though they occupy index
	// slots; zero results is valid.
	Search(ctx context.Context, userId, sessionId uuid.UUID, query string, k int) ([]ScoredChunk, error)

	// Delete irreversibly removes all persisted index state for the session.
	// Returns false when nothing existed.
	Delete(ctx context.Context, userId, sessionId uuid.UUID) (bool, error)
}

// ScopedKey builds the canonical index key for a (user, session) pair. Keying
// by both ids is what enforces tenant isolation at the storage layer.
func ScopedKey(userId, sessionId uuid.UUID) string {
	return userId.String() + ":" + sessionId.String()
}

// IsPlaceholder reports whether a chunk is the inert seeding chunk.
func IsPlaceholder(metadata map[string]string) bool {
	_, ok := metadata[PlaceholderMetaKey]
	return ok
}
