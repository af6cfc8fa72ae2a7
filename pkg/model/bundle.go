package model

import "time"

// ContextBundle is the structured output of the core for one inbound event:
// ranked citations, the proactive decision, and a profile snapshot. It is
// handed to the external text-generation collaborator; this module never
// renders natural-language responses from it.
type ContextBundle struct {
	UserID    UserID
	State     State
	Citations []*RetrievalCandidate
	Decision  *ProactiveDecision
	Profile   ProfileSnapshot
	Emotion   *EmotionResult
	Quality   []QualityFlag
	CreatedAt time.Time
}

// Flag records a degraded stage, ignoring duplicates
func (b *ContextBundle) Flag(f QualityFlag) {
	for _, q := range b.Quality {
		if q == f {
			return
		}
	}
	b.Quality = append(b.Quality, f)
}

// Degraded reports whether any stage ran on its fallback path
func (b *ContextBundle) Degraded() bool {
	return len(b.Quality) > 0
}
