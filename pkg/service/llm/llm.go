package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/solace/pkg/adapter"
	"github.com/m-mizutani/solace/pkg/model"
	"google.golang.org/genai"
)

// Generator produces free-form text from a system instruction and a prompt
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Embedder turns text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier labels a user message with the dominant emotion
type Classifier interface {
	Classify(ctx context.Context, message string) (*model.EmotionResult, error)
}

// Scorer judges the relevance of a passage to a query on a 0 to 1 scale
type Scorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
}

// Client bundles all model-backed services over one Gemini adapter
type Client struct {
	gemini adapter.Gemini
}

// New creates an LLM service client
func New(gemini adapter.Gemini) *Client {
	return &Client{gemini: gemini}
}

// GenerateText runs a single plain-text generation
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, "")
	}

	resp, err := c.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate text")
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Embed returns the embedding vector for the text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.gemini.Embedding(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text")
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("invalid response structure from gemini")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
