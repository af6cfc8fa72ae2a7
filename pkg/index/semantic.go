package index

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
	"github.com/m-mizutani/solace/pkg/service/llm"
)

// Semantic retrieves chunks by embedding similarity through the repository
// vector search. The embedder turns query text into the query vector.
type Semantic struct {
	repo     repository.Repository
	embedder llm.Embedder
}

// NewSemantic creates a semantic index backed by the repository
func NewSemantic(repo repository.Repository, embedder llm.Embedder) *Semantic {
	return &Semantic{repo: repo, embedder: embedder}
}

// Search embeds the query and returns the k nearest chunks
func (s *Semantic) Search(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	scored, err := s.repo.SearchSimilarChunks(ctx, firestore.Vector32(vec), k)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed")
	}
	return scored, nil
}
