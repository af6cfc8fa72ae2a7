package dialogue

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/utils/logging"
)

// Engine evaluates trigger rules and applies the blocklist veto. Rules run
// in ascending priority order and the first match wins; the veto runs
// after rule evaluation so a blocked question suppresses the whole
// proactive turn instead of falling through to a lower rule.
type Engine struct {
	rules []Rule
	veto  Veto
}

// Option is a functional option for Engine
type Option func(*Engine)

// WithRules replaces the built-in rule set
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithVeto replaces the default keyword blocklist
func WithVeto(v Veto) Option {
	return func(e *Engine) {
		e.veto = v
	}
}

// NewEngine creates a trigger engine with the built-in rules and keyword
// blocklist
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules: BuiltinRules(),
		veto:  NewKeywordBlocklist(),
	}

	for _, opt := range opts {
		opt(e)
	}

	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority() < e.rules[j].Priority()
	})
	return e
}

// Decide evaluates the rules for one turn. A vetoed match comes back with
// ShouldAct false and no rule or question, indistinguishable from no match
// apart from the diagnostic fields.
func (e *Engine) Decide(ctx context.Context, rc *Context) (*model.ProactiveDecision, error) {
	logger := logging.From(ctx)

	for _, rule := range e.rules {
		question, ok := rule.Match(rc)
		if !ok {
			continue
		}

		if e.veto != nil {
			blocked, err := e.veto.Blocked(ctx, question)
			if err != nil {
				// Fail closed: an unverifiable question is never asked
				logger.Warn("veto evaluation failed, suppressing question",
					"error", goerr.Wrap(err, "veto evaluation failed"),
					"rule_id", rule.ID())
				return &model.ProactiveDecision{
					ShouldAct: false,
					Vetoed:    true,
					Rationale: "veto evaluation failed",
				}, nil
			}
			if blocked {
				logger.Debug("proactive question vetoed",
					"error", goerr.Wrap(model.ErrRuleEvaluationBlocked, "blocklist match",
						goerr.V("rule_id", rule.ID())))
				return &model.ProactiveDecision{
					ShouldAct: false,
					Vetoed:    true,
					Rationale: "question blocked by policy",
				}, nil
			}
		}

		logger.Debug("proactive rule matched", "rule_id", rule.ID())
		return &model.ProactiveDecision{
			ShouldAct: true,
			RuleID:    rule.ID(),
			Question:  question,
			Rationale: "rule matched",
		}, nil
	}

	return &model.ProactiveDecision{ShouldAct: false}, nil
}
