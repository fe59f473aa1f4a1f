package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tickertalk/server/internal/agent/model"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		state model.TurnState
		want  model.Route
	}{
		{"nothing needed", model.TurnState{}, model.RouteFallback},
		{"sql pending", model.TurnState{NeedSQL: true}, model.RouteSQL},
		{"news pending", model.TurnState{NeedNews: true}, model.RouteNews},
		{"sql before news", model.TurnState{NeedSQL: true, NeedNews: true}, model.RouteSQL},
		{"news after sql", model.TurnState{NeedSQL: true, NeedNews: true, SQLDone: true}, model.RouteNews},
		{"all done", model.TurnState{NeedSQL: true, NeedNews: true, SQLDone: true, NewsDone: true}, model.RouteSynth},
		{"fallback done", model.TurnState{SQLResult: "redirect", SQLDone: true, NewsDone: true}, model.RouteSynth},
		{"sql done news not needed", model.TurnState{NeedSQL: true, SQLDone: true}, model.RouteSynth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state))
		})
	}
}

func TestDecide_ErrorShortCircuits(t *testing.T) {
	for _, s := range allFlagStates() {
		s.Error = "SQL agent error: internal error"
		assert.Equal(t, model.RouteSynth, Decide(s), "%+v", s)
	}
}

// Simulates the loop with specialists that always succeed and checks that
// every reachable start reaches synth within two dispatches without
// dispatching a specialist twice.
func TestDecide_TerminatesWithinTwoDispatches(t *testing.T) {
	for _, start := range allFlagStates() {
		if start.SQLDone || start.NewsDone {
			// reachable starts come from a reset
			continue
		}
		s := start
		seen := map[model.Route]bool{}
		dispatches := 0
		for route := Decide(s); route != model.RouteSynth; route = Decide(s) {
			assert.False(t, seen[route], "route %s dispatched twice from %+v", route, start)
			seen[route] = true
			dispatches++
			switch route {
			case model.RouteSQL:
				s.SQLResult, s.SQLDone = "rows", true
			case model.RouteNews:
				s.NewsResult, s.NewsDone = "headlines", true
			case model.RouteFallback:
				s.SQLResult, s.SQLDone, s.NewsDone = "redirect", true, true
			}
			if dispatches > 2 {
				t.Fatalf("no termination from %+v", start)
			}
		}
		assert.LessOrEqual(t, dispatches, 2)
	}
}

func allFlagStates() []model.TurnState {
	var out []model.TurnState
	for i := 0; i < 16; i++ {
		out = append(out, model.TurnState{
			NeedSQL:  i&1 != 0,
			NeedNews: i&2 != 0,
			SQLDone:  i&4 != 0,
			NewsDone: i&8 != 0,
		})
	}
	return out
}
