package dialogue_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/usecase/dialogue"
)

func newContext(state model.State, message string) *dialogue.Context {
	conv := model.NewConversation("u1", testNow())
	conv.State = state
	profile := model.NewUserProfile("u1", testNow())
	return &dialogue.Context{
		Conv:    conv,
		Profile: profile,
		Message: message,
		Now:     testNow(),
	}
}

func TestCrisisOutranksEverything(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	// A short dismissive message that would also match the vague-reply
	// rule; the critical intensity must win
	rc := newContext(model.StateFollowUp, "không sao")
	rc.Emotion = emotion(model.EmotionHopeless, model.IntensityCritical)

	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "crisis_support")
	gt.True(t, decision.Question != "")
}

func TestVagueReplyAsksForMore(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	rc := newContext(model.StateFollowUp, "ổn")
	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "vague_reply")

	// Exactly three tokens is still vague
	rc = newContext(model.StateFollowUp, "dạ em ổn")
	decision, err = engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "vague_reply")

	// A fuller answer with the same word does not fire the rule
	rc = newContext(model.StateFollowUp, "hôm nay ổn vì em đi chơi với bạn bè cả ngày")
	decision, err = engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
}

func TestCheckInAsksAboutLastTopic(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	rc := newContext(model.StateCheckIn, "")
	rc.Conv.LastTopic = "stress công việc"

	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "check_in")
	gt.S(t, decision.Question).Contains("stress công việc")
}

func TestDisclosureGetsFollowUp(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	rc := newContext(model.StateFollowUp, "em hơi lo về chuyện giao tiếp với đồng nghiệp")
	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "disclosure_followup")
}

func TestSustainedNegativeEmotionAsksDuration(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	// A negative emotion at medium intensity without a disclosure marker
	rc := newContext(model.StateFollowUp, "công việc dạo này nhiều thứ dồn lại quá")
	rc.Emotion = emotion(model.EmotionStressed, model.IntensityMedium)

	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "emotion_duration")

	// Low intensity stays below the threshold
	rc.Emotion = emotion(model.EmotionStressed, model.IntensityLow)
	decision, err = engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
}

func TestCadenceFiresAfterCycle(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	rc := newContext(model.StateFollowUp, "hôm nay em đi học bình thường thôi ạ")
	rc.Profile.CreatedAt = testNow().Add(-8 * 24 * time.Hour)
	rc.Profile.LastCadenceCheck = testNow().Add(-8 * 24 * time.Hour)

	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "progress_cadence")

	// Recent cadence check keeps the engine quiet
	rc.Profile.LastCadenceCheck = testNow().Add(-2 * 24 * time.Hour)
	decision, err = engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
}

func TestFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	// Matches both vague_reply (short dismissive) and cadence (overdue);
	// the lower priority number wins every time
	rc := newContext(model.StateFollowUp, "ổn")
	rc.Profile.LastCadenceCheck = testNow().Add(-30 * 24 * time.Hour)

	for i := 0; i < 10; i++ {
		decision, err := engine.Decide(ctx, rc)
		gt.NoError(t, err)
		gt.Equal(t, decision.RuleID, "vague_reply")
	}
}

type blockEverything struct{}

func (blockEverything) Blocked(ctx context.Context, question string) (bool, error) {
	return true, nil
}

func TestVetoSuppressesProactiveTurn(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine(dialogue.WithVeto(blockEverything{}))

	rc := newContext(model.StateFollowUp, "ổn")
	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)

	// Same outward shape as no match at all
	gt.True(t, !decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "")
	gt.Equal(t, decision.Question, "")
	gt.True(t, decision.Vetoed)
}

type brokenVeto struct{}

func (brokenVeto) Blocked(ctx context.Context, question string) (bool, error) {
	return false, goerr.New("policy backend down")
}

func TestVetoFailureFailsClosed(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine(dialogue.WithVeto(brokenVeto{}))

	// The vague reply would match; an unverifiable question is suppressed,
	// not surfaced as an event failure
	decision, err := engine.Decide(ctx, newContext(model.StateFollowUp, "ổn"))
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
	gt.Equal(t, decision.RuleID, "")
	gt.Equal(t, decision.Question, "")
	gt.True(t, decision.Vetoed)
}

type askBlockedTopic struct{}

func (askBlockedTopic) ID() model.RuleID { return "test_rule" }
func (askBlockedTopic) Priority() int    { return 1 }
func (askBlockedTopic) Match(rc *dialogue.Context) (string, bool) {
	return "Bạn có đang bị lạm dụng không?", true
}

func TestKeywordBlocklistCatchesDefaults(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine(dialogue.WithRules([]dialogue.Rule{askBlockedTopic{}}))

	decision, err := engine.Decide(ctx, newContext(model.StateFollowUp, "ổn"))
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
	gt.True(t, decision.Vetoed)
}

func TestNoMatchStaysQuiet(t *testing.T) {
	ctx := context.Background()
	engine := dialogue.NewEngine()

	rc := newContext(model.StateFollowUp, "hôm nay trời đẹp nên em ra ngoài đi dạo một vòng")
	decision, err := engine.Decide(ctx, rc)
	gt.NoError(t, err)
	gt.True(t, !decision.ShouldAct)
	gt.True(t, !decision.Vetoed)
}
