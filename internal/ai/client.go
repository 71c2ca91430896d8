package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ClientConfig configures ChatClient
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewChatClient creates a ChatClient
func NewChatClient(cfg ClientConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatClient{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: temperature,
	}
}

// Complete implements Completer.
func (c *ChatClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", describe(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// describe surfaces the upstream HTTP status when the SDK reports one.
func describe(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API returned HTTP %d: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat API returned HTTP %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat request: %w", err)
}
