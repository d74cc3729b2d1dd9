package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = `You are an expert web developer who specializes in HTML and CSS.
A user will provide you with a screenshot of a webpage. Return a single HTML file that reproduces it.
Include all CSS in the HTML file itself. If it involves any images, use 'rick.jpg' as the placeholder.
Do not reference any other external files. Respond only with the content of the HTML file.`

// OpenAIConfig selects an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for compatible servers
	Model   string
}

// OpenAIModel asks a chat completion model to rebuild the page.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a model client.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OpenAIModel{client: openai.NewClientWithConfig(c), model: model}, nil
}

// Generate sends the screenshot as an image part and returns the reply.
func (o *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    "data:image/png;base64," + prompt,
						Detail: openai.ImageURLDetailAuto,
					},
				}},
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
