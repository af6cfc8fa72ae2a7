package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionProfiles      = "profiles"
	collectionConversations = "conversations"
	collectionChunks        = "chunks"
	docChunkCounter         = "meta/chunk_counter"
)

// firestoreRepo implements Repository using Firestore
type firestoreRepo struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &firestoreRepo{client: client}, nil
}

func (r *firestoreRepo) PutProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.UserID == "" {
		return goerr.New("profile user id is empty")
	}

	ref := r.client.Collection(collectionProfiles).Doc(string(profile.UserID))
	if _, err := ref.Set(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to save profile", goerr.V("user_id", profile.UserID))
	}
	return nil
}

func (r *firestoreRepo) GetProfile(ctx context.Context, id model.UserID) (*model.UserProfile, error) {
	snap, err := r.client.Collection(collectionProfiles).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get profile", goerr.V("user_id", id))
	}

	var profile model.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile", goerr.V("user_id", id))
	}
	return &profile, nil
}

func (r *firestoreRepo) GetConversation(ctx context.Context, id model.UserID) (*model.Conversation, error) {
	snap, err := r.client.Collection(collectionConversations).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("user_id", id))
	}

	var conv model.Conversation
	if err := snap.DataTo(&conv); err != nil {
		return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("user_id", id))
	}
	return &conv, nil
}

// PutConversation writes conversation state inside a transaction. The write
// succeeds only when the stored revision still matches the revision the
// caller read; otherwise model.ErrStateConflict is returned for the caller
// to retry with fresh state.
func (r *firestoreRepo) PutConversation(ctx context.Context, conv *model.Conversation) error {
	if conv.UserID == "" {
		return goerr.New("conversation user id is empty")
	}

	ref := r.client.Collection(collectionConversations).Doc(string(conv.UserID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to read conversation in transaction")
		}

		if snap != nil && snap.Exists() {
			var stored model.Conversation
			if err := snap.DataTo(&stored); err != nil {
				return goerr.Wrap(err, "failed to decode stored conversation")
			}
			if stored.Revision != conv.Revision {
				return goerr.Wrap(model.ErrStateConflict, "revision mismatch",
					goerr.V("user_id", conv.UserID),
					goerr.V("stored", stored.Revision),
					goerr.V("given", conv.Revision))
			}
		}

		next := *conv
		next.Revision = conv.Revision + 1
		return tx.Set(ref, &next)
	})
	if err != nil {
		return err
	}

	conv.Revision++
	return nil
}

func (r *firestoreRepo) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	iter := r.client.Collection(collectionConversations).Documents(ctx)
	defer iter.Stop()

	var convs []*model.Conversation
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations")
		}

		var conv model.Conversation
		if err := snap.DataTo(&conv); err != nil {
			return nil, goerr.Wrap(err, "failed to decode conversation", goerr.V("doc", snap.Ref.ID))
		}
		convs = append(convs, &conv)
	}
	return convs, nil
}

func (r *firestoreRepo) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	counterRef := r.client.Doc(docChunkCounter)
	chunkRef := r.client.Collection(collectionChunks).Doc(string(chunk.ID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		seq := int64(0)
		snap, err := tx.Get(counterRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to read chunk counter")
		}
		if snap != nil && snap.Exists() {
			v, err := snap.DataAt("Seq")
			if err != nil {
				return goerr.Wrap(err, "failed to read chunk counter value")
			}
			if n, ok := v.(int64); ok {
				seq = n
			}
		}

		seq++
		chunk.InsertSeq = seq
		if err := tx.Set(counterRef, map[string]any{"Seq": seq}); err != nil {
			return goerr.Wrap(err, "failed to update chunk counter")
		}
		return tx.Set(chunkRef, chunk)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save chunk", goerr.V("chunk_id", chunk.ID))
	}
	return nil
}

func (r *firestoreRepo) GetChunk(ctx context.Context, id model.ChunkID) (*model.Chunk, error) {
	snap, err := r.client.Collection(collectionChunks).Doc(string(id)).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get chunk", goerr.V("chunk_id", id))
	}

	var chunk model.Chunk
	if err := snap.DataTo(&chunk); err != nil {
		return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("chunk_id", id))
	}
	return &chunk, nil
}

func (r *firestoreRepo) ListChunks(ctx context.Context) ([]*model.Chunk, error) {
	iter := r.client.Collection(collectionChunks).OrderBy("InsertSeq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var chunks []*model.Chunk
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chunks")
		}

		var chunk model.Chunk
		if err := snap.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc", snap.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, nil
}

func (r *firestoreRepo) SearchSimilarChunks(ctx context.Context, embedding firestore.Vector32, limit int) ([]*model.ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, goerr.New("query embedding is empty")
	}

	query := r.client.Collection(collectionChunks).FindNearest(
		"Embedding", embedding, limit, firestore.DistanceMeasureCosine, nil)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var scored []*model.ScoredChunk
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run vector search")
		}

		var chunk model.Chunk
		if err := snap.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc", snap.Ref.ID))
		}
		scored = append(scored, &model.ScoredChunk{
			Chunk: &chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	return scored, nil
}
