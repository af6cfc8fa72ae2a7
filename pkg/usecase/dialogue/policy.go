package dialogue

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Veto decides whether a proactive question must be suppressed. A vetoed
// question is never asked and never replaced; the turn simply stays
// reactive.
type Veto interface {
	Blocked(ctx context.Context, question string) (bool, error)
}

// defaultBlockedTerms covers topics the assistant must never proactively
// raise, even though it may respond when the user brings them up.
var defaultBlockedTerms = []string{
	"bị lạm dụng",
	"lạm dụng tình dục",
	"bạo lực gia đình",
	"đang dùng thuốc tâm thần",
	"đã từng tự tử",
	"có ý định tự tử",
	"abuse",
	"trauma details",
	"medication names",
}

// KeywordBlocklist vetoes questions containing any blocked term
type KeywordBlocklist struct {
	terms []string
}

// NewKeywordBlocklist creates the blocklist. Extra terms extend the
// built-in set.
func NewKeywordBlocklist(extra ...string) *KeywordBlocklist {
	terms := make([]string, 0, len(defaultBlockedTerms)+len(extra))
	terms = append(terms, defaultBlockedTerms...)
	for _, t := range extra {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &KeywordBlocklist{terms: terms}
}

func (b *KeywordBlocklist) Blocked(ctx context.Context, question string) (bool, error) {
	lower := strings.ToLower(question)
	for _, term := range b.terms {
		if strings.Contains(lower, term) {
			return true, nil
		}
	}
	return false, nil
}

// RegoVeto evaluates proactive questions against operator-supplied Rego
// policies. The policy denies a question by making data.blocklist.deny
// true for the input {"question": ...}.
type RegoVeto struct {
	query *rego.PreparedEvalQuery
}

// NewRegoVeto loads all .rego files under policyDir and prepares the deny
// query. Returns nil when the directory holds no policies, so the caller
// falls back to the keyword blocklist.
func NewRegoVeto(ctx context.Context, policyDir string) (*RegoVeto, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := []func(*rego.Rego){rego.Query("data.blocklist.deny")}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare blocklist query")
	}
	return &RegoVeto{query: &prepared}, nil
}

func (v *RegoVeto) Blocked(ctx context.Context, question string) (bool, error) {
	rs, err := v.query.Eval(ctx, rego.EvalInput(map[string]any{
		"question": question,
	}))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate blocklist policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	denied, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("blocklist policy returned non-boolean deny")
	}
	return denied, nil
}
