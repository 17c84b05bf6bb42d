// Package ai turns extracted study text into structured notes and quiz
// questions through a generative model.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	// ErrGenerationFailed covers failures of the model call itself
	// (network, auth, quota). Distinct from ErrMalformedResponse.
	ErrGenerationFailed = errors.New("ai generation failed")
	// ErrMalformedResponse means the call succeeded but the payload did not
	// parse as the expected shape.
	ErrMalformedResponse = errors.New("malformed ai response")
)

// Generator is the model call surface. GenerateJSON requests JSON-typed
// output; GenerateText requests free text. Neither retries.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements Generator on the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	notesModel string
	quizModel  string
}

func NewGeminiClient(ctx context.Context, apiKey, notesModel, quizModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, notesModel: notesModel, quizModel: quizModel}, nil
}

func (c *GeminiClient) Close() error { return c.client.Close() }

func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.notesModel)
	model.ResponseMIMEType = "application/json"
	return generate(ctx, model, prompt)
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return generate(ctx, c.client.GenerativeModel(c.quizModel), prompt)
}

func generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no content generated")
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out, nil
}
