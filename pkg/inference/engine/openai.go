package engine

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAISettings configures an OpenAI-compatible chat completion backend.
// BaseURL may point at any compatible server (llama.cpp, ollama, vllm, ...).
type OpenAISettings struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// OpenAIEngine runs chat completions against an OpenAI-compatible endpoint.
type OpenAIEngine struct {
	client   *openai.Client
	settings OpenAISettings
}

var _ CloseableEngine = (*OpenAIEngine)(nil)

func NewOpenAIEngine(settings OpenAISettings) (*OpenAIEngine, error) {
	if settings.Model == "" {
		return nil, errors.Wrap(ErrBackendUnavailable, "no model configured")
	}
	if settings.APIKey == "" && settings.BaseURL == "" {
		return nil, errors.Wrap(ErrBackendUnavailable, "no API key and no local base URL configured")
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 512
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}

	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		settings: settings,
	}, nil
}

func (e *OpenAIEngine) RunInference(ctx context.Context, messages conversation.Conversation) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.settings.Model,
		Temperature: e.settings.Temperature,
		MaxTokens:   e.settings.MaxTokens,
		Messages:    toChatMessages(messages),
	}

	log.Trace().Str("model", e.settings.Model).Int("messages", len(req.Messages)).
		Msg("running chat completion")

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", Transient(errors.Wrap(err, "chat completion failed"))
	}
	if len(resp.Choices) == 0 {
		return "", Transient(errors.New("chat completion returned no choices"))
	}

	return resp.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) Close() error {
	return nil
}

func toChatMessages(messages conversation.Conversation) []openai.ChatCompletionMessage {
	ret := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case conversation.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case conversation.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case conversation.RoleUser:
			role = openai.ChatMessageRoleUser
		}
		ret = append(ret, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Text,
		})
	}
	return ret
}
