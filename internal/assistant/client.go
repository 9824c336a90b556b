// Package assistant drafts suggested answers through an OpenAI-compatible
// chat completion API. Groq is the default endpoint.
package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/emilythestrangee/qa-forum/backend/internal/config"
)

const systemPrompt = `You are a helpful programming assistant. Provide clear, concise, and accurate answers to programming questions.
Focus on practical solutions and best practices. If the question is not programming-related, politely redirect to programming topics.
Keep answers under 200 words unless more detail is specifically requested. Format your answer in markdown for best display.`

// Generator turns a question into answer text, markdown or HTML.
type Generator interface {
	Generate(ctx context.Context, question string) (string, error)
}

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, question string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.7,
		MaxTokens:   500,
		TopP:        1,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
