package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/model"
	"google.golang.org/genai"
)

const scoreSystemPrompt = `You judge how relevant a reference passage is to a user's question in a mental health support context. Return a relevance score between 0 and 1 where 1 means the passage directly addresses the question.`

// Score rates the relevance of a passage to a query. The result is clamped
// to [0, 1].
func (c *Client) Score(ctx context.Context, query, passage string) (float64, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(scoreSystemPrompt, ""),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {
					Type:        genai.TypeNumber,
					Description: "Relevance between 0 and 1",
				},
			},
			Required: []string{"score"},
		},
	}

	prompt := fmt.Sprintf("Question:\n%s\n\nPassage:\n%s", query, passage)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := c.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return 0, goerr.Wrap(model.ErrRerankUnavailable, "relevance call failed", goerr.V("cause", err))
	}

	rawJSON, err := responseText(resp)
	if err != nil {
		return 0, goerr.Wrap(model.ErrRerankUnavailable, "empty relevance response")
	}

	var data struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &data); err != nil {
		return 0, goerr.Wrap(model.ErrRerankUnavailable, "failed to parse relevance score", goerr.V("raw", rawJSON))
	}

	score := data.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
