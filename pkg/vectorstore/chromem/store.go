// Package chromem backs the vector index store with chromem-go, an embedded
// persistent vector database. Every (user, session) pair maps to one chromem
// collection, persisted under the configured base directory.
package chromem

import (
	"context"
	"fmt"

	"archelon-assistant-be/pkg/embedding"
	"archelon-assistant-be/pkg/fault"
	"archelon-assistant-be/pkg/keylock"
	"archelon-assistant-be/pkg/vectorstore"

	"github.com/google/uuid"
	chromemgo "github.com/philippgille/chromem-go"
)

type Store struct {
	db       *chromemgo.DB
	embedder embedding.Provider
	locks    *keylock.KeyedMutex
}

var _ vectorstore.Store = &Store{}

// New opens (or creates) the persistent database at basePath. All previously
// persisted session collections are loaded eagerly by chromem.
func New(basePath string, embedder embedding.Provider) (*Store, error) {
	db, err := chromemgo.NewPersistentDB(basePath, false)
	if err != nil {
		return nil, fault.Storage("open persistent vector db", err)
	}
	return &Store{
		db:       db,
		embedder: embedder,
		locks:    keylock.New(),
	}, nil
}

// NewInMemory builds a non-persistent store, used by tests and ephemeral runs.
func NewInMemory(embedder embedding.Provider) *Store {
	return &Store{
		db:       chromemgo.NewDB(),
		embedder: embedder,
		locks:    keylock.New(),
	}
}

func collectionName(userId, sessionId uuid.UUID) string {
	return "session-" + userId.String() + "-" + sessionId.String()
}

func (s *Store) embeddingFunc() chromemgo.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *Store) Exists(ctx context.Context, userId, sessionId uuid.UUID) (bool, error) {
	c := s.db.GetCollection(collectionName(userId, sessionId), s.embeddingFunc())
	return c != nil, nil
}

func (s *Store) CreateOrLoad(ctx context.Context, userId, sessionId uuid.UUID, initial []vectorstore.Chunk) error {
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	_, err := s.loadOrSeed(ctx, userId, sessionId, initial)
	return err
}

// loadOrSeed returns the session collection, creating and seeding it when
// absent. Callers must hold the session lock for mutating paths.
func (s *Store) loadOrSeed(ctx context.Context, userId, sessionId uuid.UUID, initial []vectorstore.Chunk) (*chromemgo.Collection, error) {
	name := collectionName(userId, sessionId)
	if c := s.db.GetCollection(name, s.embeddingFunc()); c != nil {
		return c, nil
	}

	c, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fault.Storage("create session collection", err)
	}

	if len(initial) > 0 {
		if err := s.addDocuments(ctx, c, initial); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := s.seedPlaceholder(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) seedPlaceholder(ctx context.Context, c *chromemgo.Collection) error {
	vec, err := s.embedder.Embed(ctx, vectorstore.PlaceholderContent)
	if err != nil {
		return fault.Generation("embed placeholder chunk", err)
	}
	doc := chromemgo.Document{
		ID:        "init-" + uuid.NewString(),
		Content:   vectorstore.PlaceholderContent,
		Metadata:  map[string]string{vectorstore.PlaceholderMetaKey: "true"},
		Embedding: vec,
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fault.Storage("seed placeholder chunk", err)
	}
	return nil
}

func (s *Store) addDocuments(ctx context.Context, c *chromemgo.Collection, chunks []vectorstore.Chunk) error {
	docs := make([]chromemgo.Document, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fault.Generation("embed chunk", err)
		}
		metadata := make(map[string]string, len(chunk.Metadata))
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		docs = append(docs, chromemgo.Document{
			ID:        uuid.NewString(),
			Content:   chunk.Text,
			Metadata:  metadata,
			Embedding: vec,
		})
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fault.Storage("add chunks to collection", err)
	}
	return nil
}

func (s *Store) AddChunks(ctx context.Context, userId, sessionId uuid.UUID, chunks []vectorstore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	name := collectionName(userId, sessionId)
	if c := s.db.GetCollection(name, s.embeddingFunc()); c != nil {
		return s.addDocuments(ctx, c, chunks)
	}

	// Absent index: create it seeded with exactly these chunks.
	_, err := s.loadOrSeed(ctx, userId, sessionId, chunks)
	return err
}

func (s *Store) RemoveBySourceKey(ctx context.Context, userId, sessionId uuid.UUID, key, value string) (int, error) {
	lockKey := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	name := collectionName(userId, sessionId)
	c := s.db.GetCollection(name, s.embeddingFunc())
	if c == nil {
		return 0, fault.NotFound(fmt.Sprintf("no index for session %s", sessionId))
	}

	before := c.Count()
	if err := c.Delete(ctx, map[string]string{key: value}, nil); err != nil {
		return 0, fault.Storage("delete chunks by metadata", err)
	}
	removed := before - c.Count()

	// Keep the index-always-non-empty invariant.
	if c.Count() == 0 {
		if err := s.seedPlaceholder(ctx, c); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) Search(ctx context.Context, userId, sessionId uuid.UUID, query string, k int) ([]vectorstore.ScoredChunk, error) {
	if k <= 0 {
		k = 4
	}

	// The index is created lazily on first query as well as first ingestion.
	name := collectionName(userId, sessionId)
	c := s.db.GetCollection(name, s.embeddingFunc())
	if c == nil {
		key := vectorstore.ScopedKey(userId, sessionId)
		s.locks.Lock(key)
		var err error
		c, err = s.loadOrSeed(ctx, userId, sessionId, nil)
		s.locks.Unlock(key)
		if err != nil {
			return nil, err
		}
	}

	// The placeholder occupies a slot, so over-fetch by one and filter. chromem
	// rejects nResults larger than the collection, hence the clamp.
	n := k + 1
	if count := c.Count(); n > count {
		n = count
	}
	if n == 0 {
		return []vectorstore.ScoredChunk{}, nil
	}

	results, err := c.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fault.Storage("similarity query", err)
	}

	scored := make([]vectorstore.ScoredChunk, 0, len(results))
	for _, res := range results {
		if vectorstore.IsPlaceholder(res.Metadata) {
			continue
		}
		scored = append(scored, vectorstore.ScoredChunk{
			Chunk: vectorstore.Chunk{
				Text:     res.Content,
				Metadata: res.Metadata,
			},
			Score: res.Similarity,
		})
		if len(scored) == k {
			break
		}
	}
	return scored, nil
}

func (s *Store) Delete(ctx context.Context, userId, sessionId uuid.UUID) (bool, error) {
	key := vectorstore.ScopedKey(userId, sessionId)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	name := collectionName(userId, sessionId)
	if c := s.db.GetCollection(name, s.embeddingFunc()); c == nil {
		return false, nil
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return false, fault.Storage("delete session collection", err)
	}
	return true, nil
}
