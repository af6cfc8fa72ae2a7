package model

// RetrievalCandidate carries a chunk through the retrieval pipeline. Stage
// scores are nil until the corresponding stage has run: fused only after
// fusion, rerank only after reranking.
type RetrievalCandidate struct {
	Chunk    *Chunk
	Semantic *float64
	Lexical  *float64
	Fused    *float64
	Rerank   *float64
}

// QualityFlag marks a degraded stage on a context bundle. Degraded stages
// are reported, never surfaced as user-visible errors.
type QualityFlag string

const (
	QualityExpansionUnavailable      QualityFlag = "expansion_unavailable"
	QualitySemanticUnavailable       QualityFlag = "semantic_unavailable"
	QualityLexicalUnavailable        QualityFlag = "lexical_unavailable"
	QualityUnreranked                QualityFlag = "unreranked"
	QualityClassificationUnavailable QualityFlag = "classification_unavailable"
)
