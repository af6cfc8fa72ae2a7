package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
)

// Generator is the text generation surface the LLM expander needs
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

const expandSystemPrompt = `You rewrite a user's question into alternative search queries for a Vietnamese mental health knowledge base. Produce short paraphrases and synonym variants that could match relevant documents. Answer with one variant per line, nothing else.`

// LLMExpander generates query variants with a language model
type LLMExpander struct {
	generator Generator
}

// NewLLMExpander creates an LLM-backed query expander
func NewLLMExpander(generator Generator) *LLMExpander {
	return &LLMExpander{generator: generator}
}

// Expand returns up to n queries with the original always first. Returns
// model.ErrExpansionUnavailable when generation fails or yields fewer than
// two usable queries; the caller then falls back to single-query search.
func (e *LLMExpander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nGenerate %d alternative search queries.", query, n-1)
	raw, err := e.generator.GenerateText(ctx, expandSystemPrompt, prompt)
	if err != nil {
		return nil, goerr.Wrap(model.ErrExpansionUnavailable, "expansion generation failed", goerr.V("cause", err))
	}

	queries := dedupeQueries(query, strings.Split(raw, "\n"), n)
	if len(queries) < 2 {
		return nil, goerr.Wrap(model.ErrExpansionUnavailable, "too few usable variants", goerr.V("raw", raw))
	}
	return queries, nil
}

// StaticExpander substitutes known synonyms without any model call. It is
// the offline fallback used in local mode.
type StaticExpander struct {
	synonyms map[string][]string
}

// NewStaticExpander creates a synonym-table expander covering common
// Vietnamese mental health phrasings
func NewStaticExpander() *StaticExpander {
	return &StaticExpander{
		synonyms: map[string][]string{
			"lo âu":      {"lo lắng", "bồn chồn", "bất an"},
			"căng thẳng": {"stress", "áp lực", "quá tải"},
			"buồn":       {"buồn bã", "tủi thân", "chán nản"},
			"mất ngủ":    {"khó ngủ", "ngủ không ngon", "rối loạn giấc ngủ"},
			"trầm cảm":   {"u uất", "trầm uất"},
			"cô đơn":     {"một mình", "lẻ loi"},
			"thư giãn":   {"thả lỏng", "nghỉ ngơi", "giảm căng thẳng"},
		},
	}
}

// Expand swaps each matched phrase for its synonyms, one substitution per
// variant
func (e *StaticExpander) Expand(ctx context.Context, query string, n int) ([]string, error) {
	lower := strings.ToLower(query)

	var variants []string
	for phrase, subs := range e.synonyms {
		if !strings.Contains(lower, phrase) {
			continue
		}
		for _, sub := range subs {
			variants = append(variants, strings.ReplaceAll(lower, phrase, sub))
		}
	}

	queries := dedupeQueries(query, variants, n)
	if len(queries) < 2 {
		return nil, goerr.Wrap(model.ErrExpansionUnavailable, "no synonym matched", goerr.V("query", query))
	}
	return queries, nil
}

// dedupeQueries builds the final variant list: original first, then
// variants in order, dropping blanks and case-insensitive duplicates,
// capped at n
func dedupeQueries(original string, variants []string, n int) []string {
	queries := []string{original}
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(original)): true}

	for _, v := range variants {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, v)
		if len(queries) >= n {
			break
		}
	}
	return queries
}
