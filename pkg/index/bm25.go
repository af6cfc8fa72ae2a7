package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/m-mizutani/solace/pkg/model"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25 is an in-memory lexical index over the chunk corpus. Build it once
// with Fit, then Search is read-only and safe for concurrent use.
type BM25 struct {
	chunks    []*model.Chunk
	termFreq  []map[string]int
	docFreq   map[string]int
	docLen    []int
	avgDocLen float64
}

// NewBM25 creates an empty lexical index
func NewBM25() *BM25 {
	return &BM25{docFreq: make(map[string]int)}
}

// Fit replaces the index contents with the given corpus
func (b *BM25) Fit(chunks []*model.Chunk) {
	b.chunks = chunks
	b.termFreq = make([]map[string]int, len(chunks))
	b.docLen = make([]int, len(chunks))
	b.docFreq = make(map[string]int)

	totalLen := 0
	for i, chunk := range chunks {
		tokens := Tokenize(chunk.Text)
		b.docLen[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		b.termFreq[i] = tf
		for tok := range tf {
			b.docFreq[tok]++
		}
	}
	if len(chunks) > 0 {
		b.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
}

// Size returns the number of indexed chunks
func (b *BM25) Size() int {
	return len(b.chunks)
}

// Search ranks indexed chunks against the query and returns the top k with
// positive scores. Chunks sharing no term with the query are excluded.
func (b *BM25) Search(query string, k int) []*model.ScoredChunk {
	if len(b.chunks) == 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	n := float64(len(b.chunks))
	scored := make([]*model.ScoredChunk, 0, len(b.chunks))

	for i, chunk := range b.chunks {
		score := 0.0
		for _, tok := range queryTokens {
			freq := b.termFreq[i][tok]
			if freq == 0 {
				continue
			}
			df := float64(b.docFreq[tok])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			norm := 1 - bm25B + bm25B*float64(b.docLen[i])/b.avgDocLen
			score += idf * float64(freq) * (bm25K1 + 1) / (float64(freq) + bm25K1*norm)
		}
		if score > 0 {
			scored = append(scored, &model.ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Tokenize lowercases the text and splits on anything that is not a letter
// or digit. Works on Vietnamese text without language-specific handling.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
