// Package testutil holds fakes for the external collaborators used in tests.
package testutil

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ReplyFunc produces a completion for the given prompt messages.
type ReplyFunc func(ctx context.Context, msgs []*schema.Message) (string, error)

// ChatModel is a scripted eino chat model. It records every prompt it sees.
type ChatModel struct {
	mu    sync.Mutex
	reply ReplyFunc
	calls [][]*schema.Message
}

var _ einomodel.BaseChatModel = (*ChatModel)(nil)

// NewChatModel returns a fake that answers with reply.
func NewChatModel(reply ReplyFunc) *ChatModel {
	return &ChatModel{reply: reply}
}

// Fixed returns a fake that always answers content.
func Fixed(content string) *ChatModel {
	return NewChatModel(func(context.Context, []*schema.Message) (string, error) {
		return content, nil
	})
}

// Failing returns a fake whose every call fails with err.
func Failing(err error) *ChatModel {
	return NewChatModel(func(context.Context, []*schema.Message) (string, error) {
		return "", err
	})
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	reply := m.reply
	m.mu.Unlock()

	content, err := reply(ctx, input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns the number of completions requested so far.
func (m *ChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastPrompt returns the messages of the most recent call, or nil.
func (m *ChatModel) LastPrompt() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
