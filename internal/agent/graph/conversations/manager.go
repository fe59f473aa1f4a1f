package conversations

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/tickertalk/server/internal/agent/model"
)

// Manager loads and stores conversation memory around a turn.
type Manager struct {
	repo model.MemoryRepository
}

func NewManager(repo model.MemoryRepository) *Manager {
	return &Manager{repo: repo}
}

// Load returns the committed memory for conversationID, or nil for a new conversation.
func (m *Manager) Load(ctx context.Context, conversationID string) (*model.TurnState, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is empty")
	}
	return m.repo.Load(ctx, conversationID)
}

// Commit stores after. Only the history entries after appended since prior
// are sent to the repository.
func (m *Manager) Commit(ctx context.Context, conversationID string, prior *model.TurnState, after model.TurnState) error {
	base := 0
	if prior != nil {
		base = len(prior.ChatHistory)
	}
	if base > len(after.ChatHistory) {
		return fmt.Errorf("history shrank from %d to %d entries", base, len(after.ChatHistory))
	}
	return m.repo.Save(ctx, conversationID, after, after.ChatHistory[base:])
}

// Reset forgets everything about conversationID.
func (m *Manager) Reset(ctx context.Context, conversationID string) error {
	return m.repo.Clear(ctx, conversationID)
}

// ====================== Helper function ======================

// Window returns a copy of the last maxMessages entries. Zero means no history.
func Window(messages []*schema.Message, maxMessages int) []*schema.Message {
	if maxMessages <= 0 {
		return []*schema.Message{}
	}
	source := messages
	if len(messages) > maxMessages {
		source = messages[len(messages)-maxMessages:]
	}
	result := make([]*schema.Message, 0, len(source))
	for _, msg := range source {
		if msg == nil || msg.Content == "" {
			continue
		}
		result = append(result, msg)
	}
	return result
}
