package dialogue

import (
	"strings"
	"time"

	"github.com/m-mizutani/solace/pkg/index"
	"github.com/m-mizutani/solace/pkg/model"
)

const (
	// substantiveMinTokens is the floor for a message to count as real
	// engagement rather than a bare acknowledgement
	substantiveMinTokens = 2

	// deepTopicStreak is how many consecutive turns on one topic trigger
	// deep exploration
	deepTopicStreak = 2

	// inactivityThreshold is the silence span after which a follow-up
	// conversation moves to check-in
	inactivityThreshold = 24 * time.Hour
)

var closureCues = []string{
	"đỡ hơn", "ổn hơn", "cảm ơn", "tạm biệt", "thank you", "goodbye",
}

// Next computes the state transition for one event. It is a pure function
// of its inputs; callers apply the result to the conversation themselves.
// The emotion argument may be nil when classification was unavailable.
func Next(conv *model.Conversation, ev model.Event, emotion *model.EmotionResult) model.State {
	if ev.Kind == model.EventTick {
		return nextOnTick(conv, ev.Timestamp)
	}
	return nextOnMessage(conv, ev.Text, emotion)
}

func nextOnTick(conv *model.Conversation, now time.Time) model.State {
	if conv.State == model.StateFollowUp && !conv.LastInbound.IsZero() &&
		now.Sub(conv.LastInbound) >= inactivityThreshold {
		return model.StateCheckIn
	}
	return conv.State
}

func nextOnMessage(conv *model.Conversation, text string, emotion *model.EmotionResult) model.State {
	if hasClosureCue(text) && conv.State != model.StateInitialGreeting {
		return model.StateClosure
	}

	switch conv.State {
	case model.StateInitialGreeting:
		if substantive(text) {
			return model.StateFollowUp
		}
		return model.StateInitialGreeting

	case model.StateFollowUp:
		if deepCondition(conv, emotion) {
			return model.StateDeepIssueExploration
		}
		return model.StateFollowUp

	case model.StateCheckIn:
		if deepCondition(conv, emotion) {
			return model.StateDeepIssueExploration
		}
		return model.StateFollowUp

	case model.StateDeepIssueExploration:
		if emotion != nil && !emotion.Primary.Negative() &&
			!emotion.Intensity.AtLeast(model.IntensityHigh) {
			return model.StateFollowUp
		}
		return model.StateDeepIssueExploration

	case model.StateClosure:
		if substantive(text) {
			return model.StateFollowUp
		}
		return model.StateClosure
	}

	return conv.State
}

// deepCondition holds when the user shows strong distress or keeps
// returning to the same topic
func deepCondition(conv *model.Conversation, emotion *model.EmotionResult) bool {
	if emotion != nil && emotion.Primary.Negative() &&
		emotion.Intensity.AtLeast(model.IntensityHigh) {
		return true
	}
	return conv.TopicStreak >= deepTopicStreak
}

func substantive(text string) bool {
	return len(index.Tokenize(text)) >= substantiveMinTokens
}

func hasClosureCue(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range closureCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
