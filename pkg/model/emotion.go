package model

import "github.com/m-mizutani/goerr/v2"

type Emotion string

const (
	EmotionHappy       Emotion = "happy"
	EmotionSad         Emotion = "sad"
	EmotionAnxious     Emotion = "anxious"
	EmotionAngry       Emotion = "angry"
	EmotionFearful     Emotion = "fearful"
	EmotionStressed    Emotion = "stressed"
	EmotionHopeless    Emotion = "hopeless"
	EmotionConfused    Emotion = "confused"
	EmotionNeutral     Emotion = "neutral"
	EmotionLonely      Emotion = "lonely"
	EmotionOverwhelmed Emotion = "overwhelmed"
	EmotionFrustrated  Emotion = "frustrated"
	EmotionDepressed   Emotion = "depressed"
)

// Validate checks if the emotion belongs to the closed set
func (e Emotion) Validate() error {
	switch e {
	case EmotionHappy, EmotionSad, EmotionAnxious, EmotionAngry,
		EmotionFearful, EmotionStressed, EmotionHopeless, EmotionConfused,
		EmotionNeutral, EmotionLonely, EmotionOverwhelmed,
		EmotionFrustrated, EmotionDepressed:
		return nil
	default:
		return goerr.New("invalid emotion", goerr.V("emotion", e))
	}
}

// Negative reports whether the emotion counts as a negative signal for
// proactive rule evaluation.
func (e Emotion) Negative() bool {
	switch e {
	case EmotionSad, EmotionAnxious, EmotionAngry, EmotionFearful,
		EmotionStressed, EmotionHopeless, EmotionLonely,
		EmotionOverwhelmed, EmotionFrustrated, EmotionDepressed:
		return true
	default:
		return false
	}
}

type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityMedium   Intensity = "medium"
	IntensityHigh     Intensity = "high"
	IntensityCritical Intensity = "critical"
)

var intensityRank = map[Intensity]int{
	IntensityLow:      1,
	IntensityMedium:   2,
	IntensityHigh:     3,
	IntensityCritical: 4,
}

// Validate checks if the intensity is valid
func (i Intensity) Validate() error {
	if _, ok := intensityRank[i]; !ok {
		return goerr.New("invalid intensity", goerr.V("intensity", i))
	}
	return nil
}

// AtLeast reports whether i is equal to or stronger than other
func (i Intensity) AtLeast(other Intensity) bool {
	return intensityRank[i] >= intensityRank[other]
}

// EmotionResult is the classification of a single message. It is produced
// per message and may be persisted into the user's mood history.
type EmotionResult struct {
	Primary    Emotion
	Intensity  Intensity
	Confidence float64
}

// Validate checks both enum fields
func (r *EmotionResult) Validate() error {
	if err := r.Primary.Validate(); err != nil {
		return err
	}
	if err := r.Intensity.Validate(); err != nil {
		return err
	}
	return nil
}
