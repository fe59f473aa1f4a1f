package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/graph/conversations"
	"github.com/tickertalk/server/internal/agent/graph/nodes"
	"github.com/tickertalk/server/internal/agent/graph/observers"
	"github.com/tickertalk/server/internal/agent/intent"
	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	logx "github.com/tickertalk/server/pkg/logger"
)

// Runner executes turns for a conversation id, loading and saving memory.
// Concurrent Invoke calls for the same conversation id are not ordered.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
	Reset(ctx context.Context, conversationID string) error
}

// Config holds everything needed to compose the runner end-to-end.
type Config struct {
	APIKey       string
	BaseURL      string
	RouterModel  model.RouterModelConfig
	SQLModel     model.SQLModelConfig
	SynthModel   model.SynthModelConfig
	Price        model.PriceConfig
	News         model.NewsConfig
	Conversation model.ConversationConfig

	Symbols    *extract.Symbols
	PriceStore specialists.PriceStore
	NewsIndex  specialists.NewsIndex
	MemoryRepo model.MemoryRepository
	Metrics    *Metrics
}

type turnRunner struct {
	orchestrator  *Orchestrator
	conversations *conversations.Manager
}

// NewRunner wraps an orchestrator with memory persistence.
func NewRunner(o *Orchestrator, repo model.MemoryRepository) Runner {
	return &turnRunner{orchestrator: o, conversations: conversations.NewManager(repo)}
}

func (r *turnRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	memory, err := r.conversations.Load(ctx, in.ConversationID)
	if err != nil {
		return "", err
	}

	res := r.orchestrator.HandleTurn(ctx, in.Query, memory)

	if err := r.conversations.Commit(ctx, in.ConversationID, memory, res.Memory); err != nil {
		logx.Error().Err(err).Str("conversation_id", in.ConversationID).Msg("failed to save conversation memory")
		return res.Answer, err
	}
	return res.Answer, nil
}

func (r *turnRunner) Reset(ctx context.Context, conversationID string) error {
	return r.conversations.Reset(ctx, conversationID)
}

// BuildRunner creates the Gemini models, the specialists and the orchestrator, and returns a Runner.
func BuildRunner(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.MemoryRepo == nil {
		return nil, fmt.Errorf("memory repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		RouterModel: cfg.RouterModel,
		SQLModel:    cfg.SQLModel,
		SynthModel:  cfg.SynthModel,
	})
	if err != nil {
		return nil, err
	}

	classifier, err := intent.NewClassifier(ctx, cms.Router)
	if err != nil {
		return nil, err
	}
	price, err := specialists.NewPriceSpecialist(ctx, cms.SQL, cfg.PriceStore, cfg.Price)
	if err != nil {
		return nil, err
	}
	news, err := specialists.NewNewsSpecialist(cfg.NewsIndex, cfg.News)
	if err != nil {
		return nil, err
	}
	dispatcher, err := nodes.NewDispatcher(price, news, specialists.FallbackSpecialist{}, cfg.Conversation.CallTimeout)
	if err != nil {
		return nil, err
	}
	synth, err := nodes.NewSynthesizer(ctx, cms.Synth, cfg.Conversation.HistoryWindow, cfg.Conversation.CallTimeout)
	if err != nil {
		return nil, err
	}

	o, err := NewOrchestrator(OrchestratorConfig{
		Symbols:       cfg.Symbols,
		Classifier:    classifier,
		Dispatcher:    dispatcher,
		Synthesizer:   synth,
		Metrics:       cfg.Metrics,
		MaxDispatches: cfg.Conversation.MaxDispatches,
		CallTimeout:   cfg.Conversation.CallTimeout,
		CallOptions:   []compose.Option{compose.WithCallbacks(observers.NewAllCallbacks())},
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn runner built successfully")
	return NewRunner(o, cfg.MemoryRepo), nil
}
