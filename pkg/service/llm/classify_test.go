package llm_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/solace/pkg/model"
	"github.com/m-mizutani/solace/pkg/service/llm"
)

func TestKeywordClassifier(t *testing.T) {
	ctx := context.Background()
	classifier := llm.NewKeywordClassifier()

	cases := []struct {
		name      string
		message   string
		emotion   model.Emotion
		intensity model.Intensity
	}{
		{
			name:      "anxious vietnamese",
			message:   "Dạo này em lo lắng về kỳ thi sắp tới",
			emotion:   model.EmotionAnxious,
			intensity: model.IntensityMedium,
		},
		{
			name:      "boosted intensity",
			message:   "Em cảm thấy rất căng thẳng vì áp lực công việc",
			emotion:   model.EmotionStressed,
			intensity: model.IntensityHigh,
		},
		{
			name:      "crisis forces critical",
			message:   "Em không muốn sống nữa",
			emotion:   model.EmotionHopeless,
			intensity: model.IntensityCritical,
		},
		{
			name:      "no match falls back to neutral",
			message:   "Hôm nay trời nhiều mây",
			emotion:   model.EmotionNeutral,
			intensity: model.IntensityLow,
		},
		{
			name:      "english keywords",
			message:   "I feel so lonely and alone these days",
			emotion:   model.EmotionLonely,
			intensity: model.IntensityMedium,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := classifier.Classify(ctx, tc.message)
			gt.NoError(t, err)
			gt.Equal(t, result.Primary, tc.emotion)
			gt.Equal(t, result.Intensity, tc.intensity)
			gt.NoError(t, result.Validate())
		})
	}
}

func TestKeywordClassifierCrisisWinsOverEmotion(t *testing.T) {
	ctx := context.Background()
	classifier := llm.NewKeywordClassifier()

	// Crisis phrase next to an ordinary emotion keyword: crisis wins
	result, err := classifier.Classify(ctx, "Em buồn lắm, nhiều lúc muốn chết")
	gt.NoError(t, err)
	gt.Equal(t, result.Primary, model.EmotionHopeless)
	gt.Equal(t, result.Intensity, model.IntensityCritical)
}
