package llm

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/eambriza/pmp-coach/internal/llm/prompts"
	"github.com/eambriza/pmp-coach/internal/model"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Explanation is the tutor's answer for one question.
type Explanation struct {
	Summary        string            `json:"summary"`
	WhyCorrect     string            `json:"why_correct"`
	WhyOthersWrong map[string]string `json:"why_others_wrong"`
	StudyTip       string            `json:"study_tip"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new LLM client. An empty variant selects the standard prompt.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if err := prompts.Load(promptFS); err != nil {
		return nil, err
	}
	if variant == "" {
		variant = string(prompts.Standard)
	}
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("unknown explain style %q", variant)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Explain asks the LLM why q's correct answer is right. selected is the
// learner's choice and may be empty.
func (c *Client) Explain(ctx context.Context, q model.Question, selected model.Option) (*Explanation, error) {
	systemPrompt, err := prompts.BuildExplainPrompt(c.variant, q, selected)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Explain this question."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var ex Explanation
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if ex.Summary == "" && ex.WhyCorrect == "" {
		return nil, fmt.Errorf("LLM returned an empty explanation")
	}
	return &ex, nil
}
