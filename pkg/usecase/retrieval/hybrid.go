package retrieval

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/utils/logging"
)

// hybridSearch runs every query variant against both indexes and fuses the
// results into one ranked pool. A failing source degrades with a quality
// flag; losing both sources is a hard error.
func (uc *UseCase) hybridSearch(ctx context.Context, queries []string, result *Result) ([]*model.RetrievalCandidate, error) {
	logger := logging.From(ctx)

	type entry struct {
		chunk    *model.Chunk
		semantic *float64
		lexical  *float64
	}
	entries := make(map[model.ChunkID]*entry)

	// Per source, keep the best raw score a chunk got across all query
	// variants. Taking the max makes fusion independent of variant order.
	record := func(sc *model.ScoredChunk, semantic bool) {
		e, ok := entries[sc.Chunk.ID]
		if !ok {
			e = &entry{chunk: sc.Chunk}
			entries[sc.Chunk.ID] = e
		}
		slot := &e.lexical
		if semantic {
			slot = &e.semantic
		}
		if *slot == nil || sc.Score > **slot {
			s := sc.Score
			*slot = &s
		}
	}

	semanticOK := uc.semantic != nil
	for _, q := range queries {
		if !semanticOK {
			break
		}
		sctx, cancel := uc.stageContext(ctx)
		scored, err := uc.semantic.Search(sctx, q, perQueryFetch)
		cancel()
		if err != nil {
			logger.Warn("semantic search failed", "error", err, "query", q)
			semanticOK = false
			break
		}
		for _, sc := range scored {
			record(sc, true)
		}
	}
	if !semanticOK {
		// Discard partial semantic scores so the ranking never depends on
		// how far the source got before failing
		for _, e := range entries {
			e.semantic = nil
		}
		result.Flags = append(result.Flags, model.QualitySemanticUnavailable)
	}

	lexicalOK := uc.lexical != nil
	if lexicalOK {
		for _, q := range queries {
			for _, sc := range uc.lexical.Search(q, perQueryFetch) {
				record(sc, false)
			}
		}
	} else {
		result.Flags = append(result.Flags, model.QualityLexicalUnavailable)
	}

	if !semanticOK && !lexicalOK {
		return nil, goerr.Wrap(model.ErrRetrievalSourceUnavailable, "both retrieval sources failed")
	}

	// Drop entries that only carry scores from a failed source
	candidates := make([]*model.RetrievalCandidate, 0, len(entries))
	for _, e := range entries {
		if e.semantic == nil && e.lexical == nil {
			continue
		}
		candidates = append(candidates, &model.RetrievalCandidate{
			Chunk:    e.chunk,
			Semantic: e.semantic,
			Lexical:  e.lexical,
		})
	}

	fuse(candidates, uc.semanticWeight, uc.lexicalWeight)

	sort.SliceStable(candidates, func(i, j int) bool {
		fi, fj := *candidates[i].Fused, *candidates[j].Fused
		if fi != fj {
			return fi > fj
		}
		si, sj := deref(candidates[i].Semantic), deref(candidates[j].Semantic)
		if si != sj {
			return si > sj
		}
		return candidates[i].Chunk.InsertSeq < candidates[j].Chunk.InsertSeq
	})

	if len(candidates) > uc.poolSize {
		candidates = candidates[:uc.poolSize]
	}
	return candidates, nil
}

// fuse computes the weighted combination of min-max normalized source
// scores. A candidate found by only one source keeps just that source's
// weighted share; missing scores are not treated as zero relevance.
func fuse(candidates []*model.RetrievalCandidate, semanticWeight, lexicalWeight float64) {
	semMin, semMax := scoreRange(candidates, func(c *model.RetrievalCandidate) *float64 { return c.Semantic })
	lexMin, lexMax := scoreRange(candidates, func(c *model.RetrievalCandidate) *float64 { return c.Lexical })

	for _, c := range candidates {
		fused := 0.0
		if c.Semantic != nil {
			fused += semanticWeight * normalize(*c.Semantic, semMin, semMax)
		}
		if c.Lexical != nil {
			fused += lexicalWeight * normalize(*c.Lexical, lexMin, lexMax)
		}
		f := fused
		c.Fused = &f
	}
}

func scoreRange(candidates []*model.RetrievalCandidate, get func(*model.RetrievalCandidate) *float64) (float64, float64) {
	first := true
	var min, max float64
	for _, c := range candidates {
		s := get(c)
		if s == nil {
			continue
		}
		if first {
			min, max = *s, *s
			first = false
			continue
		}
		if *s < min {
			min = *s
		}
		if *s > max {
			max = *s
		}
	}
	return min, max
}

// normalize maps a score into [0, 1]; a degenerate range maps to 1 so a
// single hit still contributes its full weight
func normalize(score, min, max float64) float64 {
	if max == min {
		return 1
	}
	return (score - min) / (max - min)
}

func deref(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}
