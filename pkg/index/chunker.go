package index

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/solace/pkg/model"
)

const (
	chunkMinTokens   = 300
	chunkMaxTokens   = 600
	chunkOverlapFrac = 0.15
)

var sentenceBoundary = regexp.MustCompile(`(?m)([.!?…])\s+`)

// Chunker splits source documents into retrieval chunks on semantic
// boundaries: paragraphs first, sentences when a paragraph overflows.
// Consecutive chunks overlap so context does not get cut mid-thought.
type Chunker struct {
	minTokens int
	maxTokens int
	overlap   float64
}

// NewChunker creates a chunker with the default token window
func NewChunker() *Chunker {
	return &Chunker{
		minTokens: chunkMinTokens,
		maxTokens: chunkMaxTokens,
		overlap:   chunkOverlapFrac,
	}
}

// EstimateTokens approximates the token count of a text
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Split breaks the document text into chunks tagged with the source title
// and page. Chunk IDs are freshly generated; InsertSeq is assigned by the
// repository on save.
func (c *Chunker) Split(text, sourceTitle string, page int, now time.Time) []*model.Chunk {
	units := c.units(text)
	if len(units) == 0 {
		return nil
	}

	var chunks []*model.Chunk
	var buf []string
	bufTokens := 0

	flush := func() {
		if bufTokens == 0 {
			return
		}
		body := strings.Join(buf, " ")
		chunks = append(chunks, &model.Chunk{
			ID:          model.NewChunkID(),
			Text:        body,
			SourceTitle: sourceTitle,
			Page:        page,
			CreatedAt:   now,
		})

		// Seed the next chunk with the tail of this one
		keep := int(float64(len(buf)) * c.overlap)
		buf = append([]string(nil), buf[len(buf)-keep:]...)
		bufTokens = 0
		for _, u := range buf {
			bufTokens += EstimateTokens(u)
		}
	}

	for _, unit := range units {
		tokens := EstimateTokens(unit)
		if bufTokens >= c.minTokens && bufTokens+tokens > c.maxTokens {
			flush()
		}
		buf = append(buf, unit)
		bufTokens += tokens
	}
	if bufTokens > 0 {
		body := strings.Join(buf, " ")
		if strings.TrimSpace(body) != "" {
			chunks = append(chunks, &model.Chunk{
				ID:          model.NewChunkID(),
				Text:        body,
				SourceTitle: sourceTitle,
				Page:        page,
				CreatedAt:   now,
			})
		}
	}
	return chunks
}

// units splits the document into paragraphs, then splits oversized
// paragraphs into sentences
func (c *Chunker) units(text string) []string {
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if EstimateTokens(para) <= c.maxTokens {
			units = append(units, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			units = append(units, sent)
		}
	}
	return units
}

func splitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	marks := sentenceBoundary.FindAllStringSubmatch(text, -1)

	var sents []string
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i < len(marks) {
			part += marks[i][1]
		}
		sents = append(sents, part)
	}
	return sents
}
