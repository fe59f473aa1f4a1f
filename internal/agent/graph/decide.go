package graph

import "github.com/tickertalk/server/internal/agent/model"

// Decide picks the next step for s. It is evaluated fresh after every
// dispatch; the done flags keep each specialist to one run per turn.
// Fallback marks both done flags, which makes it terminal.
func Decide(s model.TurnState) model.Route {
	switch {
	case s.Error != "":
		return model.RouteSynth
	case s.NeedSQL && !s.SQLDone:
		return model.RouteSQL
	case s.NeedNews && !s.NewsDone:
		return model.RouteNews
	case !s.NeedSQL && !s.NeedNews && !(s.SQLDone && s.NewsDone):
		return model.RouteFallback
	default:
		return model.RouteSynth
	}
}
