package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/tickertalk/server/internal/agent/model"
	logx "github.com/tickertalk/server/pkg/logger"
)

const maxLoggedContent = 300

// newModelHandler logs model calls together with token usage and USD cost.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *einomodel.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", componentName(info)).Str("node", nodeName(info))
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Str("user", clip(lastUserContent(input.Messages)))
			}
			ev.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *einomodel.CallbackOutput) context.Context {
			if output == nil {
				return ctx
			}
			ev := logx.Info().Str("component", componentName(info)).Str("node", nodeName(info))
			if output.Message != nil {
				ev = ev.Str("assistant", clip(output.Message.Content))
			}
			if output.TokenUsage != nil {
				name := modelName(info, output)
				in, out, total := model.ComputeCost(output.TokenUsage.PromptTokens, output.TokenUsage.CompletionTokens, model.ResolvePricing(name))
				ev = ev.Str("model", name).
					Int("prompt_tokens", output.TokenUsage.PromptTokens).
					Int("completion_tokens", output.TokenUsage.CompletionTokens).
					Int("total_tokens", output.TokenUsage.TotalTokens).
					Float64("input_cost_usd", in).
					Float64("output_cost_usd", out).
					Float64("total_cost_usd", total)
			}
			ev.Msg("model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", componentName(info)).Str("node", nodeName(info)).Msg("model error")
			return ctx
		},
	}
}

func modelName(info *einocb.RunInfo, output *einomodel.CallbackOutput) string {
	if output != nil && output.Config != nil && output.Config.Model != "" {
		return output.Config.Model
	}
	if info != nil {
		return info.Name
	}
	return ""
}

func componentName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return string(info.Component)
}

func nodeName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	if info.Name != "" {
		return info.Name
	}
	return info.Type
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxLoggedContent {
		return string(r[:maxLoggedContent]) + "..."
	}
	return s
}
