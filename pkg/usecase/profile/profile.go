package profile

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
)

// UseCase owns all user profile mutation. Other packages read snapshots;
// writes go through here so history caps and timestamps stay consistent.
type UseCase struct {
	repo repository.Repository
}

// New creates a profile UseCase
func New(repo repository.Repository) *UseCase {
	return &UseCase{repo: repo}
}

// GetOrCreate loads the profile, creating it on first contact
func (uc *UseCase) GetOrCreate(ctx context.Context, id model.UserID, now time.Time) (*model.UserProfile, error) {
	profile, err := uc.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load profile", goerr.V("user_id", id))
	}
	if profile != nil {
		return profile, nil
	}

	profile = model.NewUserProfile(id, now)
	if err := uc.repo.PutProfile(ctx, profile); err != nil {
		return nil, goerr.Wrap(err, "failed to create profile", goerr.V("user_id", id))
	}
	return profile, nil
}

// Observe folds one classified message into the profile: mood history,
// detected topic, interaction bookkeeping.
func (uc *UseCase) Observe(ctx context.Context, profile *model.UserProfile, emotion *model.EmotionResult, topic string, now time.Time) error {
	if emotion != nil {
		profile.RecordMood(model.MoodRecord{
			Emotion:   emotion.Primary,
			Intensity: emotion.Intensity,
			At:        now,
		})
	}
	if topic != "" {
		profile.AddTopic(topic)
	}
	profile.LastInteraction = now
	profile.InteractionCount++

	if err := uc.repo.PutProfile(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to save profile", goerr.V("user_id", profile.UserID))
	}
	return nil
}

// AddConcern records a concern the user raised
func (uc *UseCase) AddConcern(ctx context.Context, id model.UserID, concern string, now time.Time) error {
	profile, err := uc.GetOrCreate(ctx, id, now)
	if err != nil {
		return err
	}
	profile.AddConcern(concern)
	if err := uc.repo.PutProfile(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to save profile", goerr.V("user_id", id))
	}
	return nil
}

// SetGoal records or updates a therapy goal
func (uc *UseCase) SetGoal(ctx context.Context, id model.UserID, goal, notes string, now time.Time) error {
	profile, err := uc.GetOrCreate(ctx, id, now)
	if err != nil {
		return err
	}
	profile.SetGoal(goal, notes, now)
	if err := uc.repo.PutProfile(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to save profile", goerr.V("user_id", id))
	}
	return nil
}

// MarkCadenceCheck stamps the profile after a progress question was asked
func (uc *UseCase) MarkCadenceCheck(ctx context.Context, profile *model.UserProfile, now time.Time) error {
	profile.LastCadenceCheck = now
	if err := uc.repo.PutProfile(ctx, profile); err != nil {
		return goerr.Wrap(err, "failed to save profile", goerr.V("user_id", profile.UserID))
	}
	return nil
}

// Snapshot returns the compact view used in context bundles
func (uc *UseCase) Snapshot(ctx context.Context, id model.UserID, now time.Time) (*model.ProfileSnapshot, error) {
	profile, err := uc.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load profile", goerr.V("user_id", id))
	}
	if profile == nil {
		return nil, goerr.New("unknown user", goerr.V("user_id", id))
	}
	snap := profile.Snapshot(now)
	return &snap, nil
}
