package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"google.golang.org/genai"
)

const classifySystemPrompt = `You classify the emotional state of a user message from a mental health support conversation. Messages are mostly Vietnamese, sometimes English. Pick exactly one primary emotion and one intensity. Use "critical" intensity only for signs of crisis such as self-harm or suicidal thoughts.`

var emotionLabels = []string{
	string(model.EmotionHappy), string(model.EmotionSad), string(model.EmotionAnxious),
	string(model.EmotionAngry), string(model.EmotionFearful), string(model.EmotionStressed),
	string(model.EmotionHopeless), string(model.EmotionConfused), string(model.EmotionNeutral),
	string(model.EmotionLonely), string(model.EmotionOverwhelmed), string(model.EmotionFrustrated),
	string(model.EmotionDepressed),
}

var intensityLabels = []string{
	string(model.IntensityLow), string(model.IntensityMedium),
	string(model.IntensityHigh), string(model.IntensityCritical),
}

// Classify labels the message with structured output. Callers degrade to
// KeywordClassifier when this returns an error.
func (c *Client) Classify(ctx context.Context, message string) (*model.EmotionResult, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(classifySystemPrompt, ""),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"primary_emotion": {
					Type:        genai.TypeString,
					Description: "Dominant emotion of the message",
					Enum:        emotionLabels,
				},
				"intensity": {
					Type:        genai.TypeString,
					Description: "Strength of the emotion",
					Enum:        intensityLabels,
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Classifier confidence between 0 and 1",
				},
			},
			Required: []string{"primary_emotion", "intensity", "confidence"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(message, genai.RoleUser),
	}

	resp, err := c.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(model.ErrClassificationUnavailable, "classification call failed", goerr.V("cause", err))
	}

	rawJSON, err := responseText(resp)
	if err != nil {
		return nil, goerr.Wrap(model.ErrClassificationUnavailable, "empty classification response")
	}

	var data struct {
		PrimaryEmotion string  `json:"primary_emotion"`
		Intensity      string  `json:"intensity"`
		Confidence     float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &data); err != nil {
		return nil, goerr.Wrap(model.ErrClassificationUnavailable, "failed to parse classification", goerr.V("raw", rawJSON))
	}

	result := &model.EmotionResult{
		Primary:    model.Emotion(data.PrimaryEmotion),
		Intensity:  model.Intensity(data.Intensity),
		Confidence: data.Confidence,
	}
	if err := result.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrClassificationUnavailable, "classification outside label set", goerr.V("raw", rawJSON))
	}
	return result, nil
}

// KeywordClassifier is the offline fallback classifier. It scans for known
// emotion keywords and crisis phrases; crisis phrases always win and force
// critical intensity.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the keyword fallback classifier
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var crisisKeywords = []string{
	"tự tử", "không muốn sống", "kết thúc cuộc đời", "muốn chết",
	"suicide", "kill myself", "end my life",
}

var emotionKeywords = map[model.Emotion][]string{
	model.EmotionSad:         {"buồn", "tủi thân", "khóc", "sad", "cry"},
	model.EmotionAnxious:     {"lo lắng", "lo âu", "bồn chồn", "hồi hộp", "anxious", "worried", "nervous"},
	model.EmotionAngry:       {"tức giận", "bực", "cáu", "angry", "mad"},
	model.EmotionFearful:     {"sợ", "sợ hãi", "hoảng", "afraid", "scared"},
	model.EmotionStressed:    {"căng thẳng", "áp lực", "stress", "quá tải công việc"},
	model.EmotionHopeless:    {"tuyệt vọng", "vô vọng", "bế tắc", "hopeless"},
	model.EmotionConfused:    {"bối rối", "không hiểu", "hoang mang", "confused"},
	model.EmotionLonely:      {"cô đơn", "một mình", "lonely", "alone"},
	model.EmotionOverwhelmed: {"quá sức", "ngộp", "không gánh nổi", "overwhelmed"},
	model.EmotionFrustrated:  {"chán nản", "bất lực", "frustrated"},
	model.EmotionDepressed:   {"trầm cảm", "u uất", "depressed"},
	model.EmotionHappy:       {"vui", "hạnh phúc", "tốt hơn", "happy", "great"},
}

var intensityBoosters = []string{"rất", "quá", "cực kỳ", "vô cùng", "very", "extremely", "really"}

// Classify never fails; an unmatched message comes back neutral with low
// confidence.
func (c *KeywordClassifier) Classify(ctx context.Context, message string) (*model.EmotionResult, error) {
	lower := strings.ToLower(message)

	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return &model.EmotionResult{
				Primary:    model.EmotionHopeless,
				Intensity:  model.IntensityCritical,
				Confidence: 0.9,
			}, nil
		}
	}

	best := model.EmotionNeutral
	bestHits := 0
	for _, emotion := range orderedEmotions {
		hits := 0
		for _, kw := range emotionKeywords[emotion] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = emotion
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return &model.EmotionResult{
			Primary:    model.EmotionNeutral,
			Intensity:  model.IntensityLow,
			Confidence: 0.3,
		}, nil
	}

	intensity := model.IntensityMedium
	for _, booster := range intensityBoosters {
		if strings.Contains(lower, booster) {
			intensity = model.IntensityHigh
			break
		}
	}

	return &model.EmotionResult{
		Primary:    best,
		Intensity:  intensity,
		Confidence: 0.6,
	}, nil
}

// orderedEmotions fixes the scan order so ties resolve deterministically
var orderedEmotions = []model.Emotion{
	model.EmotionHopeless, model.EmotionDepressed, model.EmotionOverwhelmed,
	model.EmotionAnxious, model.EmotionStressed, model.EmotionFearful,
	model.EmotionSad, model.EmotionAngry, model.EmotionFrustrated,
	model.EmotionLonely, model.EmotionConfused, model.EmotionHappy,
}
