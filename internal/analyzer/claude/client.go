// Package claude implements LLM-backed analyzers on the Anthropic Messages
// API. Each analyzer instance reviews the target for a single category.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const responseTokens = 4096

// Client wraps the Anthropic SDK for single-shot review prompts.
type Client struct {
	client anthropic.Client
	model  string
}

// NewClient creates a Claude client with the given API key and model name.
func NewClient(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete sends a single user prompt and returns the concatenated text of
// the response.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude: messages: %w", err)
	}

	return textContent(msg), nil
}

// textContent concatenates the text blocks of a response, skipping any other
// block types.
func textContent(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
