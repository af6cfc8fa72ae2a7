package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type ChunkID string

// NewChunkID generates a new unique ChunkID
func NewChunkID() ChunkID {
	return ChunkID(uuid.New().String())
}

// Chunk is one retrievable piece of the document corpus
type Chunk struct {
	ID          ChunkID
	Text        string
	SourceTitle string
	Page        int
	Embedding   firestore.Vector32

	// InsertSeq is the corpus insertion order, used as the final stable
	// tie-breaker in fusion ranking.
	InsertSeq int64

	CreatedAt time.Time
}

// Validate checks required chunk fields
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return goerr.New("chunk id is empty")
	}
	if c.Text == "" {
		return goerr.New("chunk text is empty", goerr.V("id", c.ID))
	}
	return nil
}

// ScoredChunk is a chunk paired with a single-source relevance score
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}
