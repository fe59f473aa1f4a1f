package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/tickertalk/server/internal/agent/model"
	logx "github.com/tickertalk/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	RouterModel model.RouterModelConfig
	SQLModel    model.SQLModelConfig
	SynthModel  model.SynthModelConfig
}

// ChatModels holds the three Gemini models used in a turn.
type ChatModels struct {
	Router *gemini.ChatModel
	SQL    *gemini.ChatModel
	Synth  *gemini.ChatModel
}

// NewChatModels creates the router, SQL and synth models over one Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	router, err := newChatModel(ctx, client, config.RouterModel.Model, config.RouterModel.Temperature, config.RouterModel.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating router model: %w", err)
	}
	sql, err := newChatModel(ctx, client, config.SQLModel.Model, config.SQLModel.Temperature, config.SQLModel.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating sql model: %w", err)
	}
	synth, err := newChatModel(ctx, client, config.SynthModel.Model, config.SynthModel.Temperature, config.SynthModel.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating synth model: %w", err)
	}

	return &ChatModels{Router: router, SQL: sql, Synth: synth}, nil
}

// Outputs here are short and literal, so thinking is switched off.
func newChatModel(ctx context.Context, client *genai.Client, name string, temperature float32, maxTokens int) (*gemini.ChatModel, error) {
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       name,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Str("model", name).Msg("Error creating chat model")
		return nil, err
	}
	return cm, nil
}
