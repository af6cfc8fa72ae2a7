package model

import (
	"time"
)

type UserID string

const (
	maxMoodHistory    = 50
	maxActiveTopics   = 10
	maxRecentConcerns = 5
)

// MoodRecord is one timestamped mood observation
type MoodRecord struct {
	Emotion   Emotion
	Intensity Intensity
	At        time.Time
}

// ProgressNote tracks progress toward one therapy goal
type ProgressNote struct {
	Notes     string
	UpdatedAt time.Time
}

// UserProfile is the per-user memory aggregate. Static attributes use
// overwrite semantics, dynamic attributes keep a current value plus a
// timestamped history, style attributes use replace semantics. Mutate only
// through the profile usecase; the invariant is at most one current value
// per dynamic attribute key.
type UserProfile struct {
	UserID UserID

	// Static attributes, set once and overwritten explicitly
	AgeRange   string
	Goals      []string
	Occupation string

	// Dynamic attributes
	CurrentMood      *MoodRecord
	MoodHistory      []MoodRecord
	ActiveTopics     []string
	RecentConcerns   []string
	Progress         map[string]ProgressNote
	LastInteraction  time.Time
	LastCadenceCheck time.Time
	InteractionCount int

	// Style attributes
	Verbosity string
	Tone      string

	CreatedAt time.Time
}

// NewUserProfile creates an empty profile for first contact
func NewUserProfile(id UserID, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:    id,
		Progress:  map[string]ProgressNote{},
		Verbosity: "brief",
		Tone:      "friendly",
		CreatedAt: now,
	}
}

// RecordMood sets the current mood and appends to the capped history
func (p *UserProfile) RecordMood(rec MoodRecord) {
	p.CurrentMood = &rec
	p.MoodHistory = append(p.MoodHistory, rec)
	if len(p.MoodHistory) > maxMoodHistory {
		p.MoodHistory = p.MoodHistory[len(p.MoodHistory)-maxMoodHistory:]
	}
}

// AddTopic marks a topic as active, keeping the most recent ones
func (p *UserProfile) AddTopic(topic string) {
	for _, t := range p.ActiveTopics {
		if t == topic {
			return
		}
	}
	p.ActiveTopics = append(p.ActiveTopics, topic)
	if len(p.ActiveTopics) > maxActiveTopics {
		p.ActiveTopics = p.ActiveTopics[len(p.ActiveTopics)-maxActiveTopics:]
	}
}

// AddConcern prepends a recent concern, keeping the newest few
func (p *UserProfile) AddConcern(concern string) {
	for _, c := range p.RecentConcerns {
		if c == concern {
			return
		}
	}
	p.RecentConcerns = append([]string{concern}, p.RecentConcerns...)
	if len(p.RecentConcerns) > maxRecentConcerns {
		p.RecentConcerns = p.RecentConcerns[:maxRecentConcerns]
	}
}

// SetGoal registers a therapy goal with an initial progress note
func (p *UserProfile) SetGoal(goal, notes string, now time.Time) {
	found := false
	for _, g := range p.Goals {
		if g == goal {
			found = true
			break
		}
	}
	if !found {
		p.Goals = append(p.Goals, goal)
	}
	if p.Progress == nil {
		p.Progress = map[string]ProgressNote{}
	}
	p.Progress[goal] = ProgressNote{Notes: notes, UpdatedAt: now}
}

// MoodTrend summarizes the last few moods for personalization:
// "needs_attention" when mostly negative, "positive" when none negative,
// otherwise "steady".
func (p *UserProfile) MoodTrend() string {
	if len(p.MoodHistory) < 3 {
		return "steady"
	}
	recent := p.MoodHistory[len(p.MoodHistory)-3:]
	negatives := 0
	for _, m := range recent {
		if m.Emotion.Negative() {
			negatives++
		}
	}
	switch {
	case negatives >= 2:
		return "needs_attention"
	case negatives == 0:
		return "positive"
	default:
		return "steady"
	}
}

// ProfileSnapshot is the read-only personalization context placed into a
// context bundle.
type ProfileSnapshot struct {
	UserID           UserID         `json:"user_id"`
	AgeRange         string         `json:"age_range,omitempty"`
	Goals            []string       `json:"goals,omitempty"`
	CurrentMood      *MoodRecord    `json:"current_mood,omitempty"`
	MoodTrend        string         `json:"mood_trend"`
	ActiveTopics     []string       `json:"active_topics,omitempty"`
	RecentConcerns   []string       `json:"recent_concerns,omitempty"`
	Verbosity        string         `json:"verbosity"`
	Tone             string         `json:"tone"`
	DaysKnown        int            `json:"days_known"`
	InteractionCount int            `json:"interaction_count"`
}

// Snapshot builds the personalization context as of now
func (p *UserProfile) Snapshot(now time.Time) ProfileSnapshot {
	days := 0
	if !p.CreatedAt.IsZero() {
		days = int(now.Sub(p.CreatedAt).Hours() / 24)
	}
	return ProfileSnapshot{
		UserID:           p.UserID,
		AgeRange:         p.AgeRange,
		Goals:            append([]string(nil), p.Goals...),
		CurrentMood:      p.CurrentMood,
		MoodTrend:        p.MoodTrend(),
		ActiveTopics:     append([]string(nil), p.ActiveTopics...),
		RecentConcerns:   append([]string(nil), p.RecentConcerns...),
		Verbosity:        p.Verbosity,
		Tone:             p.Tone,
		DaysKnown:        days,
		InteractionCount: p.InteractionCount,
	}
}
