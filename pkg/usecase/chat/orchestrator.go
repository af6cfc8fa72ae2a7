package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/adapter"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/repository"
	"github.com/m-mizutani/solace/pkg/usecase/dialogue"
	"github.com/m-mizutani/solace/pkg/usecase/profile"
	"github.com/m-mizutani/solace/pkg/usecase/retrieval"
	"github.com/m-mizutani/solace/pkg/utils/logging"
)

const (
	// maxConflictRetries bounds the optimistic concurrency retry loop on
	// conversation state writes
	maxConflictRetries = 3

	// defaultStageTimeout bounds each external call made while holding the
	// per-user lock; a hung backend degrades its stage instead of blocking
	// the user's event stream
	defaultStageTimeout = 15 * time.Second
)

// Classifier labels a message with its dominant emotion
type Classifier interface {
	Classify(ctx context.Context, message string) (*model.EmotionResult, error)
}

// Retriever runs the retrieval pipeline for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*retrieval.Result, error)
}

// UseCase is the orchestrator: it turns one inbound event into a context
// bundle by running classification, profile update, the conversation FSM,
// trigger rules and retrieval in order. Per-user locking keeps concurrent
// events for the same user serialized.
type UseCase struct {
	repo       repository.Repository
	profiles   *profile.UseCase
	engine     *dialogue.Engine
	retriever  Retriever
	classifier Classifier
	fallback   Classifier
	archive    adapter.Storage
	locker     *locker

	stageTimeout time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithArchive enables transcript archiving of every produced bundle
func WithArchive(s adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.archive = s
	}
}

// WithFallbackClassifier replaces the keyword fallback classifier
func WithFallbackClassifier(c Classifier) Option {
	return func(uc *UseCase) {
		uc.fallback = c
	}
}

// WithStageTimeout bounds each classification and archive call; zero
// disables the bound
func WithStageTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.stageTimeout = d
	}
}

// New creates the orchestrator UseCase
func New(
	repo repository.Repository,
	profiles *profile.UseCase,
	engine *dialogue.Engine,
	retriever Retriever,
	classifier Classifier,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:       repo,
		profiles:   profiles,
		engine:     engine,
		retriever:  retriever,
		classifier: classifier,
		locker:     newLocker(),

		stageTimeout: defaultStageTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// HandleMessage processes one user message and returns the context bundle
func (uc *UseCase) HandleMessage(ctx context.Context, userID model.UserID, text string, now time.Time) (*model.ContextBundle, error) {
	return uc.handle(ctx, model.NewMessageEvent(userID, text, now))
}

// HandleTick processes a scheduler tick for one user. Tick bundles carry a
// proactive decision but no fresh emotion or citations unless the check-in
// references a known topic.
func (uc *UseCase) HandleTick(ctx context.Context, userID model.UserID, now time.Time) (*model.ContextBundle, error) {
	return uc.handle(ctx, model.NewTickEvent(userID, now))
}

func (uc *UseCase) handle(ctx context.Context, ev model.Event) (*model.ContextBundle, error) {
	unlock := uc.locker.acquire(ev.UserID)
	defer unlock()

	logger := logging.From(ctx)
	bundle := &model.ContextBundle{
		UserID:    ev.UserID,
		CreatedAt: ev.Timestamp,
	}

	var emotion *model.EmotionResult
	if ev.Kind == model.EventMessage {
		emotion = uc.classify(ctx, ev.Text, bundle)
		bundle.Emotion = emotion
	}

	prof, err := uc.profiles.GetOrCreate(ctx, ev.UserID, ev.Timestamp)
	if err != nil {
		return nil, err
	}

	topic := ""
	if ev.Kind == model.EventMessage {
		topic = dialogue.DetectTopic(ev.Text)
	}

	conv, err := uc.advanceConversation(ctx, ev, emotion, topic)
	if err != nil {
		return nil, err
	}
	bundle.State = conv.State

	if ev.Kind == model.EventMessage {
		if err := uc.profiles.Observe(ctx, prof, emotion, topic, ev.Timestamp); err != nil {
			return nil, err
		}
	}

	decision, err := uc.engine.Decide(ctx, &dialogue.Context{
		Conv:    conv,
		Profile: prof,
		Emotion: emotion,
		Message: ev.Text,
		Now:     ev.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	bundle.Decision = decision

	if decision.ShouldAct && decision.RuleID == "progress_cadence" {
		if err := uc.profiles.MarkCadenceCheck(ctx, prof, ev.Timestamp); err != nil {
			return nil, err
		}
	}

	uc.retrieve(ctx, ev, conv, bundle)

	bundle.Profile = prof.Snapshot(ev.Timestamp)

	uc.archiveBundle(ctx, bundle)

	logger.Info("context bundle assembled",
		"user_id", ev.UserID,
		"event", ev.Kind,
		"state", bundle.State,
		"proactive", decision.ShouldAct,
		"citations", len(bundle.Citations),
		"degraded", bundle.Degraded())
	return bundle, nil
}

// stageContext bounds one external call with the configured timeout
func (uc *UseCase) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.stageTimeout)
}

// classify labels the message, degrading to the keyword fallback when the
// model classifier is unavailable
func (uc *UseCase) classify(ctx context.Context, text string, bundle *model.ContextBundle) *model.EmotionResult {
	if uc.classifier != nil {
		sctx, cancel := uc.stageContext(ctx)
		result, err := uc.classifier.Classify(sctx, text)
		cancel()
		if err == nil {
			return result
		}
		logging.From(ctx).Warn("emotion classification degraded", "error", err)
	}
	bundle.Flag(model.QualityClassificationUnavailable)

	if uc.fallback == nil {
		return nil
	}
	result, err := uc.fallback.Classify(ctx, text)
	if err != nil {
		return nil
	}
	return result
}

// advanceConversation applies the FSM transition under optimistic
// concurrency, rereading fresh state on each conflict
func (uc *UseCase) advanceConversation(ctx context.Context, ev model.Event, emotion *model.EmotionResult, topic string) (*model.Conversation, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		conv, err := uc.repo.GetConversation(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			conv = model.NewConversation(ev.UserID, ev.Timestamp)
		}

		if topic != "" {
			if topic == conv.LastTopic {
				conv.TopicStreak++
			} else {
				conv.LastTopic = topic
				conv.TopicStreak = 1
			}
		}

		next := dialogue.Next(conv, ev, emotion)
		if next != conv.State {
			conv.Transitions = append(conv.Transitions, model.Transition{
				From: conv.State,
				To:   next,
				At:   ev.Timestamp,
			})
			conv.State = next
			conv.LastTransition = ev.Timestamp
		}
		if ev.Kind == model.EventMessage {
			conv.LastInbound = ev.Timestamp
			conv.TurnCount++
		}

		err = uc.repo.PutConversation(ctx, conv)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, model.ErrStateConflict) {
			return nil, err
		}
		logging.From(ctx).Warn("conversation write conflict, retrying",
			"user_id", ev.UserID, "attempt", attempt+1)
	}
	return nil, goerr.Wrap(model.ErrStateConflict, "conversation write kept conflicting",
		goerr.V("user_id", ev.UserID), goerr.V("retries", maxConflictRetries))
}

// retrieve fills the bundle citations. Message events search on the
// message; tick events search on the last known topic so a check-in can
// cite relevant material. Retrieval failure degrades to an empty citation
// list.
func (uc *UseCase) retrieve(ctx context.Context, ev model.Event, conv *model.Conversation, bundle *model.ContextBundle) {
	if uc.retriever == nil {
		return
	}

	query := ev.Text
	if ev.Kind == model.EventTick {
		query = conv.LastTopic
	}
	if query == "" {
		return
	}

	result, err := uc.retriever.Retrieve(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("retrieval failed, bundle carries no citations", "error", err)
		bundle.Flag(model.QualitySemanticUnavailable)
		bundle.Flag(model.QualityLexicalUnavailable)
		return
	}

	bundle.Citations = result.Candidates
	for _, f := range result.Flags {
		bundle.Flag(f)
	}
}

// archiveBundle writes the bundle to the transcript archive, best effort
func (uc *UseCase) archiveBundle(ctx context.Context, bundle *model.ContextBundle) {
	if uc.archive == nil {
		return
	}

	sctx, cancel := uc.stageContext(ctx)
	defer cancel()

	key := fmt.Sprintf("transcripts/%s/%d.json", bundle.UserID, bundle.CreatedAt.UnixNano())
	w, err := uc.archive.Put(sctx, key)
	if err != nil {
		logging.From(ctx).Warn("failed to open transcript archive", "error", err, "key", key)
		return
	}
	defer func() {
		if err := w.Close(); err != nil {
			logging.From(ctx).Warn("failed to close transcript archive", "error", err, "key", key)
		}
	}()

	if err := json.NewEncoder(w).Encode(bundle); err != nil {
		logging.From(ctx).Warn("failed to archive bundle", "error", err, "key", key)
	}
}
