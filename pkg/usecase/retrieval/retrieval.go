package retrieval

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/utils/logging"
)

const (
	defaultSemanticWeight = 0.6
	defaultLexicalWeight  = 0.4
	defaultPoolSize       = 20
	defaultTopM           = 5
	defaultQueryBound     = 5
	perQueryFetch         = 20

	// defaultStageTimeout bounds each external call so a hung backend
	// degrades its stage instead of stalling the event
	defaultStageTimeout = 15 * time.Second
)

// Expander produces query variants for multi-query retrieval
type Expander interface {
	Expand(ctx context.Context, query string, n int) ([]string, error)
}

// SemanticIndex searches the corpus by embedding similarity
type SemanticIndex interface {
	Search(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error)
}

// LexicalIndex searches the corpus by term statistics
type LexicalIndex interface {
	Search(query string, k int) []*model.ScoredChunk
}

// Scorer judges query/passage relevance for reranking
type Scorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
}

// Result is the output of one retrieval run: candidates in final rank
// order plus the flags of any degraded stage.
type Result struct {
	Candidates []*model.RetrievalCandidate
	Queries    []string
	Flags      []model.QualityFlag
}

// UseCase runs the retrieval pipeline: query expansion, hybrid search over
// the semantic and lexical indexes, score fusion, then LLM reranking and
// truncation to the top M candidates. Every stage degrades instead of
// failing; only the loss of both search sources is an error.
type UseCase struct {
	expander Expander
	semantic SemanticIndex
	lexical  LexicalIndex
	scorer   Scorer

	semanticWeight float64
	lexicalWeight  float64
	poolSize       int
	topM           int
	queryBound     int
	stageTimeout   time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithWeights sets the fusion weights for the semantic and lexical sources
func WithWeights(semantic, lexical float64) Option {
	return func(uc *UseCase) {
		uc.semanticWeight = semantic
		uc.lexicalWeight = lexical
	}
}

// WithPoolSize caps the fused candidate pool
func WithPoolSize(n int) Option {
	return func(uc *UseCase) {
		uc.poolSize = n
	}
}

// WithTopM sets how many head candidates get reranked
func WithTopM(m int) Option {
	return func(uc *UseCase) {
		uc.topM = m
	}
}

// WithQueryBound sets the expansion variant count, clamped to [3, 10]
func WithQueryBound(n int) Option {
	return func(uc *UseCase) {
		if n < 3 {
			n = 3
		}
		if n > 10 {
			n = 10
		}
		uc.queryBound = n
	}
}

// WithStageTimeout bounds each expansion, search and scoring call; zero
// disables the bound
func WithStageTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.stageTimeout = d
	}
}

// New creates a retrieval UseCase
func New(expander Expander, semantic SemanticIndex, lexical LexicalIndex, scorer Scorer, opts ...Option) *UseCase {
	uc := &UseCase{
		expander:       expander,
		semantic:       semantic,
		lexical:        lexical,
		scorer:         scorer,
		semanticWeight: defaultSemanticWeight,
		lexicalWeight:  defaultLexicalWeight,
		poolSize:       defaultPoolSize,
		topM:           defaultTopM,
		queryBound:     defaultQueryBound,
		stageTimeout:   defaultStageTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Retrieve runs the full pipeline for one user query
func (uc *UseCase) Retrieve(ctx context.Context, query string) (*Result, error) {
	logger := logging.From(ctx)
	result := &Result{}

	queries := uc.expandQueries(ctx, query, result)
	result.Queries = queries

	pool, err := uc.hybridSearch(ctx, queries, result)
	if err != nil {
		return nil, err
	}

	uc.rerank(ctx, query, pool, result)
	if len(pool) > uc.topM {
		pool = pool[:uc.topM]
	}
	result.Candidates = pool

	logger.Debug("retrieval finished",
		"query", query,
		"variants", len(queries),
		"pool", len(pool),
		"flags", result.Flags)
	return result, nil
}

// stageContext bounds one external call with the configured timeout
func (uc *UseCase) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.stageTimeout)
}

// expandQueries returns the variant list with the original query always at
// position zero. Expansion failure degrades to single-query retrieval.
func (uc *UseCase) expandQueries(ctx context.Context, query string, result *Result) []string {
	if uc.expander == nil {
		return []string{query}
	}

	sctx, cancel := uc.stageContext(ctx)
	variants, err := uc.expander.Expand(sctx, query, uc.queryBound)
	cancel()
	if err != nil {
		if !errors.Is(err, model.ErrExpansionUnavailable) {
			logging.From(ctx).Warn("query expansion failed", "error", err)
		}
		result.Flags = append(result.Flags, model.QualityExpansionUnavailable)
		return []string{query}
	}
	return variants
}

// rerank rescores the head of the pool and reorders it by the new scores.
// Ties and unscored candidates keep their fused order. Scorer failure
// leaves the pool untouched apart from the quality flag.
func (uc *UseCase) rerank(ctx context.Context, query string, pool []*model.RetrievalCandidate, result *Result) {
	if uc.scorer == nil || len(pool) == 0 {
		if len(pool) > 0 {
			result.Flags = append(result.Flags, model.QualityUnreranked)
		}
		return
	}

	m := uc.topM
	if m > len(pool) {
		m = len(pool)
	}

	scores := make([]float64, m)
	for i := 0; i < m; i++ {
		sctx, cancel := uc.stageContext(ctx)
		score, err := uc.scorer.Score(sctx, query, pool[i].Chunk.Text)
		cancel()
		if err != nil {
			logging.From(ctx).Warn("rerank scoring failed", "error", err, "chunk_id", pool[i].Chunk.ID)
			result.Flags = append(result.Flags, model.QualityUnreranked)
			return
		}
		scores[i] = score
	}

	head := make([]*model.RetrievalCandidate, m)
	copy(head, pool[:m])
	for i := range head {
		s := scores[i]
		head[i].Rerank = &s
	}
	sort.SliceStable(head, func(i, j int) bool {
		return *head[i].Rerank > *head[j].Rerank
	})
	copy(pool[:m], head)
}
