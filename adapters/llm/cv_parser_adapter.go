package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/pkg/logger"
)

const defaultCVModel = "gpt-4o-mini"

const cvSystemPrompt = `You extract structured data from a CV. Answer with one JSON object and nothing else:
{"name": string, "skills": [string], "education": [{"degree": string, "field": string, "institution": string}],
"experience": [{"title": string, "company": string, "description": string}], "projects": [string],
"interests": [string], "career_goal": string}
Use empty strings or empty arrays for anything the CV does not state.`

type cvParserAdapter struct {
	client *openai.Client
	model  string
	log    logger.Logger
}

// NewCVParserAdapter talks to any OpenAI-compatible chat endpoint.
func NewCVParserAdapter(cfg config.Config, log logger.Logger) (service.CVParser, error) {
	if cfg.CV.BaseURL == "" && cfg.CV.APIKey == "" {
		return nil, fmt.Errorf("CV parser is not configured")
	}

	key := cfg.CV.APIKey
	if key == "" {
		key = "dummy-key"
	}
	clientConfig := openai.DefaultConfig(key)
	if cfg.CV.BaseURL != "" {
		clientConfig.BaseURL = cfg.CV.BaseURL
	}
	model := cfg.CV.Model
	if model == "" {
		model = defaultCVModel
	}

	client := openai.NewClientWithConfig(clientConfig)

	log.Info("CV parser adapter initialized", zap.String("model", model))
	return &cvParserAdapter{client: client, model: model, log: log}, nil
}

func (a *cvParserAdapter) Parse(ctx context.Context, text string) (*service.CVFields, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cvSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("cv parse request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("cv parser returned no choices")
	}

	content := stripFence(resp.Choices[0].Message.Content)
	var fields service.CVFields
	if err := sonic.UnmarshalString(content, &fields); err != nil {
		a.log.Warn("CV parser answered with invalid JSON", zap.Int("length", len(content)))
		return nil, fmt.Errorf("cv parser returned invalid JSON: %w", err)
	}
	return &fields, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
