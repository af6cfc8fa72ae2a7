package dialogue

import (
	"strings"
	"time"

	"github.com/m-mizutani/solace/pkg/index"
	"github.com/m-mizutani/solace/pkg/model"
)

const (
	// vagueMaxTokens is the ceiling for a reply to count as vague
	vagueMaxTokens = 3

	// disclosureMinTokens is the floor for a disclosure to be worth
	// exploring further
	disclosureMinTokens = 3

	// therapyCycle is the default cadence for progress questions
	therapyCycle = 7 * 24 * time.Hour
)

// Context carries everything a trigger rule may inspect. Rules read it,
// never mutate it.
type Context struct {
	Conv    *model.Conversation
	Profile *model.UserProfile
	Emotion *model.EmotionResult
	Message string
	Now     time.Time
}

// Rule is one proactive trigger. Match returns the question to ask when
// the rule fires.
type Rule interface {
	ID() model.RuleID
	Priority() int
	Match(rc *Context) (string, bool)
}

// BuiltinRules returns the trigger rules in evaluation order. Priorities
// are fixed and unique; the engine takes the first match.
func BuiltinRules() []Rule {
	return []Rule{
		&crisisRule{},
		&vagueReplyRule{},
		&checkInRule{},
		&disclosureRule{},
		&durationRule{},
		&cadenceRule{},
	}
}

// crisisRule fires on critical emotional intensity regardless of state
type crisisRule struct{}

func (r *crisisRule) ID() model.RuleID { return "crisis_support" }
func (r *crisisRule) Priority() int    { return 1 }

func (r *crisisRule) Match(rc *Context) (string, bool) {
	if rc.Emotion == nil || rc.Emotion.Intensity != model.IntensityCritical {
		return "", false
	}
	return pick(crisisQuestions, rc.Conv.TurnCount), true
}

// vagueReplyRule fires on dismissive one-word replies in an established
// conversation
type vagueReplyRule struct{}

func (r *vagueReplyRule) ID() model.RuleID { return "vague_reply" }
func (r *vagueReplyRule) Priority() int    { return 2 }

var vagueMarkers = []string{"ổn", "bình thường", "không sao", "ok", "fine", "cũng được"}

func (r *vagueReplyRule) Match(rc *Context) (string, bool) {
	if rc.Conv.State != model.StateFollowUp && rc.Conv.State != model.StateCheckIn {
		return "", false
	}
	if len(index.Tokenize(rc.Message)) > vagueMaxTokens {
		return "", false
	}

	lower := strings.ToLower(rc.Message)
	for _, marker := range vagueMarkers {
		if strings.Contains(lower, marker) {
			return pick(vagueReplyQuestions, rc.Conv.TurnCount), true
		}
	}
	return "", false
}

// checkInRule fires when the scheduler has moved the conversation to
// check-in and we owe the user a re-engagement question
type checkInRule struct{}

func (r *checkInRule) ID() model.RuleID { return "check_in" }
func (r *checkInRule) Priority() int    { return 3 }

func (r *checkInRule) Match(rc *Context) (string, bool) {
	if rc.Conv.State != model.StateCheckIn || rc.Message != "" {
		return "", false
	}
	return checkInQuestion(rc.Conv), true
}

// disclosureRule fires when the user opens up about something and the
// message is substantial enough to explore
type disclosureRule struct{}

func (r *disclosureRule) ID() model.RuleID { return "disclosure_followup" }
func (r *disclosureRule) Priority() int    { return 4 }

var disclosureMarkers = []string{"em hơi", "tôi cảm thấy", "mình đang", "bị", "gặp phải"}

func (r *disclosureRule) Match(rc *Context) (string, bool) {
	if len(index.Tokenize(rc.Message)) < disclosureMinTokens {
		return "", false
	}

	lower := strings.ToLower(rc.Message)
	for _, marker := range disclosureMarkers {
		if strings.Contains(lower, marker) {
			return pick(explorationQuestions, rc.Conv.TurnCount), true
		}
	}
	return "", false
}

// durationRule fires on a sustained negative emotion when no disclosure
// marker already claimed the message
type durationRule struct{}

func (r *durationRule) ID() model.RuleID { return "emotion_duration" }
func (r *durationRule) Priority() int    { return 5 }

func (r *durationRule) Match(rc *Context) (string, bool) {
	if rc.Message == "" || rc.Emotion == nil {
		return "", false
	}
	if !rc.Emotion.Primary.Negative() || !rc.Emotion.Intensity.AtLeast(model.IntensityMedium) {
		return "", false
	}
	return pick(durationQuestions, rc.Conv.TurnCount), true
}

// cadenceRule fires when a full therapy cycle has passed since the last
// progress check
type cadenceRule struct{}

func (r *cadenceRule) ID() model.RuleID { return "progress_cadence" }
func (r *cadenceRule) Priority() int    { return 6 }

func (r *cadenceRule) Match(rc *Context) (string, bool) {
	if rc.Profile == nil {
		return "", false
	}
	last := rc.Profile.LastCadenceCheck
	if last.IsZero() {
		last = rc.Profile.CreatedAt
	}
	if rc.Now.Sub(last) < therapyCycle {
		return "", false
	}
	return pick(progressQuestions, rc.Conv.TurnCount), true
}
