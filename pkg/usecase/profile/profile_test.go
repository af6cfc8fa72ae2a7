package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
	"github.com/m-mizutani/solace/pkg/usecase/profile"
)

func testNow() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := profile.New(repo)

	created, err := uc.GetOrCreate(ctx, "u1", testNow())
	gt.NoError(t, err)
	gt.Equal(t, created.UserID, "u1")
	gt.Equal(t, created.Verbosity, "brief")

	// Second call returns the stored profile, not a fresh one
	created.AgeRange = "18-24"
	gt.NoError(t, repo.PutProfile(ctx, created))

	again, err := uc.GetOrCreate(ctx, "u1", testNow().Add(time.Hour))
	gt.NoError(t, err)
	gt.Equal(t, again.AgeRange, "18-24")
	gt.Equal(t, again.CreatedAt, testNow())
}

func TestObserveUpdatesMoodAndTopics(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := profile.New(repo)

	p, err := uc.GetOrCreate(ctx, "u1", testNow())
	gt.NoError(t, err)

	emo := &model.EmotionResult{
		Primary:    model.EmotionAnxious,
		Intensity:  model.IntensityMedium,
		Confidence: 0.8,
	}
	gt.NoError(t, uc.Observe(ctx, p, emo, "stress công việc", testNow()))

	stored, err := repo.GetProfile(ctx, "u1")
	gt.NoError(t, err)
	gt.V(t, stored.CurrentMood).NotNil()
	gt.Equal(t, stored.CurrentMood.Emotion, model.EmotionAnxious)
	gt.A(t, stored.ActiveTopics).Length(1)
	gt.Equal(t, stored.InteractionCount, 1)
	gt.Equal(t, stored.LastInteraction, testNow())

	// Classification outage still counts the interaction
	gt.NoError(t, uc.Observe(ctx, p, nil, "", testNow().Add(time.Minute)))
	stored, err = repo.GetProfile(ctx, "u1")
	gt.NoError(t, err)
	gt.Equal(t, stored.InteractionCount, 2)
	gt.A(t, stored.MoodHistory).Length(1)
}

func TestGoalsAndConcerns(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := profile.New(repo)

	gt.NoError(t, uc.SetGoal(ctx, "u1", "ngủ đủ giấc", "bắt đầu tuần này", testNow()))
	gt.NoError(t, uc.AddConcern(ctx, "u1", "kỳ thi cuối kỳ", testNow()))

	snap, err := uc.Snapshot(ctx, "u1", testNow().Add(48*time.Hour))
	gt.NoError(t, err)
	gt.A(t, snap.Goals).Length(1)
	gt.A(t, snap.RecentConcerns).Length(1)
	gt.Equal(t, snap.DaysKnown, 2)

	_, err = uc.Snapshot(ctx, "nobody", testNow())
	gt.Error(t, err)
}

func TestMoodTrendNeedsAttention(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := profile.New(repo)

	p, err := uc.GetOrCreate(ctx, "u1", testNow())
	gt.NoError(t, err)

	moods := []model.Emotion{model.EmotionSad, model.EmotionAnxious, model.EmotionStressed}
	for i, m := range moods {
		emo := &model.EmotionResult{Primary: m, Intensity: model.IntensityMedium, Confidence: 0.7}
		gt.NoError(t, uc.Observe(ctx, p, emo, "", testNow().Add(time.Duration(i)*time.Hour)))
	}

	snap, err := uc.Snapshot(ctx, "u1", testNow())
	gt.NoError(t, err)
	gt.Equal(t, snap.MoodTrend, "needs_attention")
}
