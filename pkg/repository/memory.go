package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
)

// memoryRepo is an in-memory Repository for local mode and tests. It
// enforces the same optimistic concurrency contract as the Firestore
// implementation.
type memoryRepo struct {
	mu        sync.RWMutex
	profiles  map[model.UserID]*model.UserProfile
	convs     map[model.UserID]*model.Conversation
	chunks    map[model.ChunkID]*model.Chunk
	chunkSeq  []model.ChunkID
	insertSeq int64
}

// NewMemory creates an in-memory repository
func NewMemory() Repository {
	return &memoryRepo{
		profiles: make(map[model.UserID]*model.UserProfile),
		convs:    make(map[model.UserID]*model.Conversation),
		chunks:   make(map[model.ChunkID]*model.Chunk),
	}
}

func (r *memoryRepo) PutProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.UserID == "" {
		return goerr.New("profile user id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *profile
	r.profiles[profile.UserID] = &cp
	return nil
}

func (r *memoryRepo) GetProfile(ctx context.Context, id model.UserID) (*model.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *profile
	return &cp, nil
}

func (r *memoryRepo) GetConversation(ctx context.Context, id model.UserID) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *conv
	cp.Transitions = append([]model.Transition(nil), conv.Transitions...)
	return &cp, nil
}

func (r *memoryRepo) PutConversation(ctx context.Context, conv *model.Conversation) error {
	if conv.UserID == "" {
		return goerr.New("conversation user id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.convs[conv.UserID]; ok && stored.Revision != conv.Revision {
		return goerr.Wrap(model.ErrStateConflict, "revision mismatch",
			goerr.V("user_id", conv.UserID),
			goerr.V("stored", stored.Revision),
			goerr.V("given", conv.Revision))
	}

	cp := *conv
	cp.Revision++
	cp.Transitions = append([]model.Transition(nil), conv.Transitions...)
	r.convs[conv.UserID] = &cp
	conv.Revision = cp.Revision
	return nil
}

func (r *memoryRepo) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	convs := make([]*model.Conversation, 0, len(r.convs))
	for _, conv := range r.convs {
		cp := *conv
		convs = append(convs, &cp)
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UserID < convs[j].UserID
	})
	return convs, nil
}

func (r *memoryRepo) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chunks[chunk.ID]; !ok {
		r.insertSeq++
		chunk.InsertSeq = r.insertSeq
		r.chunkSeq = append(r.chunkSeq, chunk.ID)
	}
	cp := *chunk
	r.chunks[chunk.ID] = &cp
	return nil
}

func (r *memoryRepo) GetChunk(ctx context.Context, id model.ChunkID) (*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chunk, ok := r.chunks[id]
	if !ok {
		return nil, goerr.New("chunk not found", goerr.V("chunk_id", id))
	}
	cp := *chunk
	return &cp, nil
}

func (r *memoryRepo) ListChunks(ctx context.Context) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chunks := make([]*model.Chunk, 0, len(r.chunkSeq))
	for _, id := range r.chunkSeq {
		cp := *r.chunks[id]
		chunks = append(chunks, &cp)
	}
	return chunks, nil
}

func (r *memoryRepo) SearchSimilarChunks(ctx context.Context, embedding firestore.Vector32, limit int) ([]*model.ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, goerr.New("query embedding is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	scored := make([]*model.ScoredChunk, 0, len(r.chunkSeq))
	for _, id := range r.chunkSeq {
		chunk := r.chunks[id]
		if len(chunk.Embedding) == 0 {
			continue
		}
		score := cosineSimilarity(embedding, chunk.Embedding)
		cp := *chunk
		scored = append(scored, &model.ScoredChunk{Chunk: &cp, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b firestore.Vector32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
