package model

type RuleID string

// ProactiveDecision is the rule engine's determination for one evaluated
// event. A blocklist veto yields ShouldAct=false with an empty RuleID so
// that callers cannot distinguish it from "no rule matched"; Vetoed and
// Rationale keep the distinction available to diagnostics.
type ProactiveDecision struct {
	ShouldAct bool
	RuleID    RuleID
	Question  string
	Rationale string
	Vetoed    bool
}
