package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/tickertalk/server/internal/agent/extract"
	"github.com/tickertalk/server/internal/agent/model"
	"github.com/tickertalk/server/internal/agent/specialists"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

const DefaultCallTimeout = 30 * time.Second

// Dispatcher runs the specialist a route names and folds its outcome back
// into the turn state. It never lets a specialist failure escape.
type Dispatcher struct {
	byRoute map[model.Route]specialists.Specialist
	timeout time.Duration
}

func NewDispatcher(price, news, fallback specialists.Specialist, timeout time.Duration) (*Dispatcher, error) {
	if price == nil || news == nil || fallback == nil {
		return nil, fmt.Errorf("dispatcher: all three specialists are required")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Dispatcher{
		byRoute: map[model.Route]specialists.Specialist{
			model.RouteSQL:      price,
			model.RouteNews:     news,
			model.RouteFallback: fallback,
		},
		timeout: timeout,
	}, nil
}

// Dispatch returns the updated state. The returned error is the raw
// specialist failure, already recorded in state.Error, for logging only.
func (d *Dispatcher) Dispatch(ctx context.Context, route model.Route, state model.TurnState, opts ...compose.Option) (model.TurnState, error) {
	sp, ok := d.byRoute[route]
	if !ok {
		err := fmt.Errorf("no specialist for route %q", route)
		state.Error = "router error: " + errx.SafeMessage(err)
		return state, err
	}

	out, err := d.run(ctx, sp, RequestFor(state), opts...)
	if err != nil {
		state.Error = sp.Name() + " error: " + errx.SafeMessage(err)
		logx.Warn().Err(err).Str("route", route.String()).Str("specialist", sp.Name()).Msg("specialist failed")
		return state, err
	}

	switch route {
	case model.RouteSQL:
		state.SQLResult = out
		state.SQLDone = true
	case model.RouteNews:
		state.NewsResult = out
		state.NewsDone = true
	case model.RouteFallback:
		state.SQLResult = out
		state.SQLDone = true
		state.NewsDone = true
	}
	return state, nil
}

func (d *Dispatcher) run(ctx context.Context, sp specialists.Specialist, req specialists.Request, opts ...compose.Option) (out string, err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("specialist", sp.Name()).Msgf("panic recovered: %v", r)
			out, err = "", fmt.Errorf("%s panic: %v", sp.Name(), r)
		}
	}()
	return sp.Run(ctx, req, opts...)
}

// ResolveQuery normalises dates and substitutes the sticky date for "that day".
func ResolveQuery(query, lastDate string) string {
	return extract.ResolveThatDay(extract.NormalizeDates(query), lastDate)
}

// RequestFor builds the specialist view of the turn. An explicit date in the
// question wins over the sticky one.
func RequestFor(state model.TurnState) specialists.Request {
	q := ResolveQuery(state.Query, state.LastDate)
	date := extract.Date(q)
	if date == "" {
		date = state.LastDate
	}
	return specialists.Request{
		Query:   q,
		Ticker:  state.LastTicker,
		Date:    date,
		History: state.ChatHistory,
	}
}
