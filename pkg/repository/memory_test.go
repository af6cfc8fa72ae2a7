package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
)

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	got, err := repo.GetProfile(ctx, "u1")
	gt.NoError(t, err)
	gt.Nil(t, got)

	profile := model.NewUserProfile("u1", time.Now())
	profile.AddTopic("work stress")
	gt.NoError(t, repo.PutProfile(ctx, profile))

	got, err = repo.GetProfile(ctx, "u1")
	gt.NoError(t, err)
	gt.V(t, got).NotNil()
	gt.Equal(t, got.UserID, "u1")
	gt.A(t, got.ActiveTopics).Length(1)
}

func TestConversationRevisionConflict(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	conv := model.NewConversation("u1", time.Now())
	gt.NoError(t, repo.PutConversation(ctx, conv))
	gt.Equal(t, conv.Revision, 1)

	// Simulate a concurrent writer holding a stale revision
	stale := model.NewConversation("u1", time.Now())
	stale.Revision = 0
	err := repo.PutConversation(ctx, stale)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrStateConflict))

	// The in-sync copy can still advance
	conv.TurnCount++
	gt.NoError(t, repo.PutConversation(ctx, conv))
	gt.Equal(t, conv.Revision, 2)

	got, err := repo.GetConversation(ctx, "u1")
	gt.NoError(t, err)
	gt.Equal(t, got.TurnCount, 1)
}

func TestChunkInsertOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		chunk := &model.Chunk{
			ID:   model.NewChunkID(),
			Text: text,
		}
		gt.NoError(t, repo.PutChunk(ctx, chunk))
	}

	chunks, err := repo.ListChunks(ctx)
	gt.NoError(t, err)
	gt.A(t, chunks).Length(3)
	for i, chunk := range chunks {
		gt.Equal(t, chunk.Text, texts[i])
		gt.Equal(t, chunk.InsertSeq, int64(i+1))
	}
}

func TestSearchSimilarChunks(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	vectors := map[string]firestore.Vector32{
		"exact":      {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
	}
	for text, vec := range vectors {
		chunk := &model.Chunk{
			ID:        model.NewChunkID(),
			Text:      text,
			Embedding: vec,
		}
		gt.NoError(t, repo.PutChunk(ctx, chunk))
	}

	scored, err := repo.SearchSimilarChunks(ctx, firestore.Vector32{1, 0, 0}, 2)
	gt.NoError(t, err)
	gt.A(t, scored).Length(2)
	gt.Equal(t, scored[0].Chunk.Text, "exact")
	gt.Equal(t, scored[1].Chunk.Text, "close")
	gt.True(t, scored[0].Score > scored[1].Score)

	_, err = repo.SearchSimilarChunks(ctx, nil, 2)
	gt.Error(t, err)
}
