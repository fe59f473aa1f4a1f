package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/graph/nodes"
	"github.com/tickertalk/server/internal/agent/intent"
	"github.com/tickertalk/server/internal/agent/model"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

// DefaultMaxDispatches bounds the dispatch loop. Two dispatches are enough
// for any reachable flag combination.
const DefaultMaxDispatches = 4

// Orchestrator runs one turn: entry, the router/specialist loop, synthesis.
//
// A turn is strictly sequential. Turns for different conversations may run
// concurrently. Turns for the same conversation must be serialised by the
// caller; nothing here orders them.
type Orchestrator struct {
	symbols       *extract.Symbols
	classifier    *intent.Classifier
	dispatcher    *nodes.Dispatcher
	synthesizer   *nodes.Synthesizer
	metrics       *Metrics
	maxDispatches int
	callTimeout   time.Duration
	callOpts      []compose.Option
}

type OrchestratorConfig struct {
	Symbols       *extract.Symbols
	Classifier    *intent.Classifier
	Dispatcher    *nodes.Dispatcher
	Synthesizer   *nodes.Synthesizer
	Metrics       *Metrics
	MaxDispatches int
	CallTimeout   time.Duration
	// CallOptions are passed to every chain invocation, e.g. compose.WithCallbacks.
	CallOptions []compose.Option
}

func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Dispatcher == nil || cfg.Synthesizer == nil {
		return nil, fmt.Errorf("orchestrator: dispatcher and synthesizer are required")
	}
	if cfg.Symbols == nil {
		cfg.Symbols = extract.DefaultSymbols()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics()
	}
	if cfg.MaxDispatches <= 0 {
		cfg.MaxDispatches = DefaultMaxDispatches
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = nodes.DefaultCallTimeout
	}
	return &Orchestrator{
		symbols:       cfg.Symbols,
		classifier:    cfg.Classifier,
		dispatcher:    cfg.Dispatcher,
		synthesizer:   cfg.Synthesizer,
		metrics:       cfg.Metrics,
		maxDispatches: cfg.MaxDispatches,
		callTimeout:   cfg.CallTimeout,
		callOpts:      cfg.CallOptions,
	}, nil
}

// HandleTurn answers query given the prior memory, which may be nil. It
// always returns an answer; failures become an apology and are recorded in
// the returned memory's Error field. memory is not modified.
func (o *Orchestrator) HandleTurn(ctx context.Context, query string, memory *model.TurnState) model.TurnResult {
	start := time.Now()
	defer func() { o.metrics.TurnDuration.Observe(time.Since(start).Seconds()) }()

	state := o.enter(ctx, query, memory)

	for steps := 0; ; steps++ {
		route := Decide(state)
		if route == model.RouteSynth {
			break
		}
		if steps >= o.maxDispatches {
			state.Error = "router error: " + errx.SafeMessage(errx.IterationCap(o.maxDispatches))
			o.metrics.IterationCapHits.Inc()
			logx.Error().Int("steps", steps).Str("route", route.String()).Msg("dispatch loop hit iteration cap")
			break
		}

		o.metrics.DispatchesTotal.WithLabelValues(route.String()).Inc()
		logx.Debug().Str("route", route.String()).Str("ticker", state.LastTicker).Msg("dispatching")

		var err error
		state, err = o.dispatcher.Dispatch(ctx, route, state, o.callOpts...)
		if err != nil {
			o.metrics.SpecialistErrors.WithLabelValues(route.String()).Inc()
		}
	}

	state, err := o.synthesizer.Synthesize(ctx, state, o.callOpts...)
	if err != nil {
		o.metrics.SpecialistErrors.WithLabelValues(model.RouteSynth.String()).Inc()
	}
	o.metrics.TurnsTotal.Inc()

	return model.TurnResult{Answer: state.Answer, Memory: state}
}

// enter merges the question into prior memory. A question that differs from
// the last committed one resets the turn fields and is classified once; a
// repeated question keeps its flags so a re-invocation does not dispatch again.
func (o *Orchestrator) enter(ctx context.Context, query string, memory *model.TurnState) model.TurnState {
	var state model.TurnState
	if memory != nil {
		state = memory.Clone()
	}
	state.Query = query
	state.Answer = ""

	if state.IsNewQuery(query) {
		state.ResetTurn()

		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		res := o.classifier.Classify(callCtx, query, o.callOpts...)
		cancel()

		state.NeedSQL = res.NeedSQL
		state.NeedNews = res.NeedNews
		if res.Degraded {
			o.metrics.DegradedClassifications.Inc()
		}
		logx.Debug().Bool("need_sql", res.NeedSQL).Bool("need_news", res.NeedNews).Bool("degraded", res.Degraded).Msg("classified")
	}

	if ticker := o.symbols.Ticker(nodes.ResolveQuery(query, state.LastDate)); ticker != "" {
		state.LastTicker = ticker
	}
	return state
}
