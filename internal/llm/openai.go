package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model override is configured. JSON mode
// requires a model that supports response_format.
const DefaultOpenAIModel = openai.GPT4o

type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(model string) (*openAIBackend, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &openAIBackend{client: openai.NewClient(key), model: model}, nil
}

func (o *openAIBackend) Name() string { return "openai" }

// Complete runs the chat completion in JSON mode, so this backend enforces
// strict JSON-only output. The shared parser still handles the payload the
// same way as for the looser backends.
func (o *openAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
