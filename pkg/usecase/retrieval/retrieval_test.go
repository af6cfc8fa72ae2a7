package retrieval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/usecase/retrieval"
)

type stubExpander struct {
	queries []string
	err     error
}

func (s *stubExpander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.queries, nil
}

type stubSemantic struct {
	results map[string][]*model.ScoredChunk
	err     error
}

func (s *stubSemantic) Search(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

type stubLexical struct {
	results map[string][]*model.ScoredChunk
}

func (s *stubLexical) Search(query string, k int) []*model.ScoredChunk {
	return s.results[query]
}

type stubScorer struct {
	scores map[model.ChunkID]float64
	err    error
}

func (s *stubScorer) Score(ctx context.Context, query, passage string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	for id, score := range s.scores {
		if passage == string(id) {
			return score, nil
		}
	}
	return 0, nil
}

// test chunks use their ID as text so the stub scorer can find them
func tchunk(id string, seq int64) *model.Chunk {
	return &model.Chunk{ID: model.ChunkID(id), Text: id, InsertSeq: seq}
}

func scored(c *model.Chunk, score float64) *model.ScoredChunk {
	return &model.ScoredChunk{Chunk: c, Score: score}
}

func hasFlag(flags []model.QualityFlag, want model.QualityFlag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func TestRetrieveFusesBothSources(t *testing.T) {
	ctx := context.Background()
	a, b, c := tchunk("a", 1), tchunk("b", 2), tchunk("c", 3)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q", "q2"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q":  {scored(a, 0.9), scored(b, 0.5)},
			"q2": {scored(b, 0.7)},
		}},
		&stubLexical{results: map[string][]*model.ScoredChunk{
			"q": {scored(b, 3.0), scored(c, 1.0)},
		}},
		nil,
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.A(t, result.Candidates).Length(3)

	// a tops the semantic range, b leads lexical but sits at the bottom
	// of the semantic range, c only has the weakest lexical hit
	gt.Equal(t, result.Candidates[0].Chunk.ID, "a")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "b")
	gt.Equal(t, result.Candidates[2].Chunk.ID, "c")

	// b keeps the best raw semantic score it got across the variants
	gt.V(t, result.Candidates[1].Semantic).NotNil()
	gt.V(t, result.Candidates[1].Lexical).NotNil()
	gt.Equal(t, *result.Candidates[1].Semantic, 0.7)

	for _, cand := range result.Candidates {
		gt.V(t, cand.Fused).NotNil()
	}
	gt.True(t, hasFlag(result.Flags, model.QualityUnreranked))
}

func TestRetrieveFusionOrderIndependent(t *testing.T) {
	ctx := context.Background()
	a, b := tchunk("a", 1), tchunk("b", 2)

	semantic := map[string][]*model.ScoredChunk{
		"q":  {scored(a, 0.9)},
		"q2": {scored(a, 0.4), scored(b, 0.8)},
	}
	lexical := map[string][]*model.ScoredChunk{
		"q":  {scored(b, 2.0)},
		"q2": {scored(a, 1.0)},
	}

	run := func(queries []string) []model.ChunkID {
		uc := retrieval.New(
			&stubExpander{queries: queries},
			&stubSemantic{results: semantic},
			&stubLexical{results: lexical},
			nil,
		)
		result, err := uc.Retrieve(ctx, queries[0])
		gt.NoError(t, err)

		var ids []model.ChunkID
		for _, cand := range result.Candidates {
			ids = append(ids, cand.Chunk.ID)
		}
		return ids
	}

	gt.Equal(t, run([]string{"q", "q2"}), run([]string{"q2", "q"}))
}

func TestRetrieveLexicalOnlyDegrade(t *testing.T) {
	ctx := context.Background()
	a, b := tchunk("a", 1), tchunk("b", 2)

	uc := retrieval.New(
		&stubExpander{err: goerr.Wrap(model.ErrExpansionUnavailable, "offline")},
		&stubSemantic{err: goerr.New("embedding backend down")},
		&stubLexical{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 2.0), scored(b, 1.0)},
		}},
		nil,
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.A(t, result.Candidates).Length(2)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "a")
	gt.Nil(t, result.Candidates[0].Semantic)

	gt.True(t, hasFlag(result.Flags, model.QualityExpansionUnavailable))
	gt.True(t, hasFlag(result.Flags, model.QualitySemanticUnavailable))
	gt.A(t, result.Queries).Length(1)
}

func TestRetrieveBothSourcesDownFails(t *testing.T) {
	ctx := context.Background()

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{err: goerr.New("down")},
		&stubLexical{results: map[string][]*model.ScoredChunk{}},
		nil,
	)
	// Lexical returning nothing is an empty result, not a failed source
	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.A(t, result.Candidates).Length(0)

	uc = retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{err: goerr.New("down")},
		nil,
		nil,
	)
	_, err = uc.Retrieve(ctx, "q")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrRetrievalSourceUnavailable))
}

func TestRerankReordersHead(t *testing.T) {
	ctx := context.Background()
	a, b, c := tchunk("a", 1), tchunk("b", 2), tchunk("c", 3)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 0.9), scored(b, 0.8), scored(c, 0.7)},
		}},
		nil,
		&stubScorer{scores: map[model.ChunkID]float64{"a": 0.2, "b": 0.9, "c": 0.5}},
		retrieval.WithTopM(2),
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)

	// Rescored and cut to the top two; c falls off the end
	gt.A(t, result.Candidates).Length(2)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "b")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "a")
	gt.True(t, !hasFlag(result.Flags, model.QualityUnreranked))
}

func TestRerankTruncatesWithoutScorer(t *testing.T) {
	ctx := context.Background()
	a, b, c := tchunk("a", 1), tchunk("b", 2), tchunk("c", 3)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 0.9), scored(b, 0.8), scored(c, 0.7)},
		}},
		nil,
		nil,
		retrieval.WithTopM(2),
	)

	// The degraded path returns the top-M prefix in fused order
	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.A(t, result.Candidates).Length(2)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "a")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "b")
	gt.True(t, hasFlag(result.Flags, model.QualityUnreranked))
}

func TestRerankFailureKeepsFusedOrder(t *testing.T) {
	ctx := context.Background()
	a, b := tchunk("a", 1), tchunk("b", 2)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 0.9), scored(b, 0.8)},
		}},
		nil,
		&stubScorer{err: goerr.New("scoring backend down")},
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "a")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "b")
	gt.True(t, hasFlag(result.Flags, model.QualityUnreranked))
}

// hangingScorer blocks until the call's context is cancelled
type hangingScorer struct{}

func (hangingScorer) Score(ctx context.Context, query, passage string) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestStageTimeoutDegradesRerank(t *testing.T) {
	ctx := context.Background()
	a, b := tchunk("a", 1), tchunk("b", 2)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 0.9), scored(b, 0.8)},
		}},
		nil,
		hangingScorer{},
		retrieval.WithStageTimeout(5*time.Millisecond),
	)

	// A hung scorer times out and leaves the fused order intact
	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "a")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "b")
	gt.True(t, hasFlag(result.Flags, model.QualityUnreranked))
}

// hangingSemantic blocks until the call's context is cancelled
type hangingSemantic struct{}

func (hangingSemantic) Search(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStageTimeoutDegradesSemanticSearch(t *testing.T) {
	ctx := context.Background()
	a := tchunk("a", 1)

	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		hangingSemantic{},
		&stubLexical{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 1.0)},
		}},
		nil,
		retrieval.WithStageTimeout(5*time.Millisecond),
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.A(t, result.Candidates).Length(1)
	gt.True(t, hasFlag(result.Flags, model.QualitySemanticUnavailable))
}

func TestFusedTieBreaksBySeq(t *testing.T) {
	ctx := context.Background()
	a, b := tchunk("a", 2), tchunk("b", 1)

	// Identical scores everywhere: insertion order decides
	uc := retrieval.New(
		&stubExpander{queries: []string{"q"}},
		&stubSemantic{results: map[string][]*model.ScoredChunk{
			"q": {scored(a, 0.5), scored(b, 0.5)},
		}},
		nil,
		nil,
	)

	result, err := uc.Retrieve(ctx, "q")
	gt.NoError(t, err)
	gt.Equal(t, result.Candidates[0].Chunk.ID, "b")
	gt.Equal(t, result.Candidates[1].Chunk.ID, "a")
}
