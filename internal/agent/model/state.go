package model

import (
	"slices"

	"github.com/cloudwego/eino/schema"
)

// Route names the next step the router picked for a turn.
type Route string

const (
	RouteSQL      Route = "agent_sql"
	RouteNews     Route = "agent_news"
	RouteFallback Route = "agent_fallback"
	RouteSynth    Route = "synth"
)

func (r Route) String() string {
	return string(r)
}

// TurnState is threaded by value through one turn and doubles as the
// conversation memory handed back to the caller.
//
// Ownership rules:
//   - ChatHistory is only appended to, and only when a turn is committed.
//   - LastTicker and LastDate are only written from extractor output.
//   - Empty strings mean "absent" for the optional text fields. LastQuery is a
//     pointer so that "never committed" differs from a committed empty query.
type TurnState struct {
	Query       string            `json:"query"`
	ChatHistory []*schema.Message `json:"chat_history,omitempty"`
	LastTicker  string            `json:"last_ticker,omitempty"`
	LastDate    string            `json:"last_date,omitempty"`
	LastQuery   *string           `json:"last_query,omitempty"`

	NeedSQL  bool `json:"need_sql"`
	NeedNews bool `json:"need_news"`
	SQLDone  bool `json:"sql_done"`
	NewsDone bool `json:"news_done"`

	SQLResult  string `json:"sql_result,omitempty"`
	NewsResult string `json:"news_result,omitempty"`
	Answer     string `json:"answer,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IsNewQuery reports whether query differs from the last committed query.
func (s TurnState) IsNewQuery(query string) bool {
	return s.LastQuery == nil || *s.LastQuery != query
}

// ResetTurn clears every turn-scoped field. Memory fields are kept.
func (s *TurnState) ResetTurn() {
	s.NeedSQL = false
	s.NeedNews = false
	s.SQLDone = false
	s.NewsDone = false
	s.SQLResult = ""
	s.NewsResult = ""
	s.Error = ""
}

// Clone returns a copy whose history slice does not alias the receiver's.
func (s TurnState) Clone() TurnState {
	out := s
	out.ChatHistory = slices.Clone(s.ChatHistory)
	if s.LastQuery != nil {
		q := *s.LastQuery
		out.LastQuery = &q
	}
	return out
}

// FallbackTurn reports whether the turn was routed to the fallback specialist.
func (s TurnState) FallbackTurn() bool {
	return !s.NeedSQL && !s.NeedNews
}

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// TurnResult is what a completed turn hands back to the caller.
type TurnResult struct {
	Answer string    `json:"answer"`
	Memory TurnState `json:"memory"`
}
