package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/solace/pkg/model"
)

// Repository defines persistence for user profiles, conversation state and
// the document corpus. Profiles and conversations are keyed by user ID and
// live forever; PutConversation enforces optimistic concurrency on
// Conversation.Revision and returns model.ErrStateConflict when the stored
// revision has moved.
type Repository interface {
	// PutProfile saves a user profile (last write wins)
	PutProfile(ctx context.Context, profile *model.UserProfile) error

	// GetProfile retrieves a profile, or nil when the user is unknown
	GetProfile(ctx context.Context, id model.UserID) (*model.UserProfile, error)

	// GetConversation retrieves conversation state, or nil when unknown
	GetConversation(ctx context.Context, id model.UserID) (*model.Conversation, error)

	// PutConversation saves conversation state. The caller passes the
	// revision it read; on success the stored revision is incremented.
	PutConversation(ctx context.Context, conv *model.Conversation) error

	// ListConversations enumerates all conversation states, for the
	// inactivity scan. Must not require per-user locks.
	ListConversations(ctx context.Context) ([]*model.Conversation, error)

	// PutChunk saves a corpus chunk, assigning its insertion sequence
	PutChunk(ctx context.Context, chunk *model.Chunk) error

	// GetChunk retrieves a chunk by ID
	GetChunk(ctx context.Context, id model.ChunkID) (*model.Chunk, error)

	// ListChunks retrieves all corpus chunks in insertion order
	ListChunks(ctx context.Context) ([]*model.Chunk, error)

	// SearchSimilarChunks performs vector search over chunk embeddings
	SearchSimilarChunks(ctx context.Context, embedding firestore.Vector32, limit int) ([]*model.ScoredChunk, error)
}
