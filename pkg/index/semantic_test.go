package index_test

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/index"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
)

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, ok := s.vectors[text]
	if !ok {
		return nil, goerr.New("no vector for text")
	}
	return vec, nil
}

func TestSemanticSearch(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	corpus := []struct {
		text string
		vec  firestore.Vector32
	}{
		{"hít thở sâu để thư giãn", firestore.Vector32{1, 0, 0}},
		{"ngủ đủ tám tiếng", firestore.Vector32{0, 1, 0}},
		{"tập thể dục buổi sáng", firestore.Vector32{0, 0, 1}},
	}
	for _, c := range corpus {
		gt.NoError(t, repo.PutChunk(ctx, &model.Chunk{
			ID:        model.NewChunkID(),
			Text:      c.text,
			Embedding: c.vec,
		}))
	}

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"cách thư giãn": {0.9, 0.1, 0},
	}}
	sem := index.NewSemantic(repo, embedder)

	results, err := sem.Search(ctx, "cách thư giãn", 2)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].Chunk.Text, "hít thở sâu để thư giãn")

	_, err = sem.Search(ctx, "unknown query", 2)
	gt.Error(t, err)
}
