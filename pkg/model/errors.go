package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrExpansionUnavailable indicates the query expansion call failed or
	// produced too few usable variants. Callers fall back to single-query
	// retrieval.
	ErrExpansionUnavailable = goerr.New("query expansion unavailable")

	// ErrRetrievalSourceUnavailable indicates one of the retrieval sources
	// (semantic or lexical) failed. Partial failure degrades to the
	// remaining source; total failure is fatal to the retrieval stage.
	ErrRetrievalSourceUnavailable = goerr.New("retrieval source unavailable")

	// ErrRerankUnavailable indicates the relevance scorer failed. The fused
	// ranking is returned unchanged and flagged as unreranked.
	ErrRerankUnavailable = goerr.New("rerank scorer unavailable")

	// ErrClassificationUnavailable indicates emotion classification failed
	// and the keyword fallback was used.
	ErrClassificationUnavailable = goerr.New("emotion classification unavailable")

	// ErrRuleEvaluationBlocked indicates a proactive question was vetoed by
	// the safety blocklist. This is the designed safe outcome, not a
	// pipeline failure; it surfaces only in diagnostics.
	ErrRuleEvaluationBlocked = goerr.New("proactive question blocked")

	// ErrStateConflict indicates a concurrent write was detected on a
	// user's conversation state. The event must be retried against fresh
	// state.
	ErrStateConflict = goerr.New("conversation state conflict")
)
