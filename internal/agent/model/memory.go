package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type MemoryRepository interface {
	// Load returns the committed memory for a conversation, or nil when none exists.
	Load(ctx context.Context, conversationID string) (*TurnState, error)

	// Save persists the committed memory. appended holds the history entries
	// added by the turn being committed; they are appended, never rewritten.
	Save(ctx context.Context, conversationID string, memory TurnState, appended []*schema.Message) error

	// Clear removes all memory for a conversation.
	Clear(ctx context.Context, conversationID string) error

	// HistoryLength returns the number of stored chat history entries.
	HistoryLength(ctx context.Context, conversationID string) (int, error)
}
