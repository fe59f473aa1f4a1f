package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/tickertalk/server/internal/agent/model"
	errx "github.com/tickertalk/server/internal/core/error"
	logx "github.com/tickertalk/server/pkg/logger"
)

// RedisMemoryRepository stores the turn snapshot as a JSON string and the chat
// history as an append-only list, so saving a turn never rewrites history.
type RedisMemoryRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisMemoryRepository(rdb redis.Cmdable, ttl time.Duration) *RedisMemoryRepository {
	return &RedisMemoryRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisMemoryRepository) memoryKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:memory", conversationID)
}

func (r *RedisMemoryRepository) messagesKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

func (r *RedisMemoryRepository) Load(ctx context.Context, conversationID string) (*model.TurnState, error) {
	memKey := r.memoryKey(conversationID)
	msgKey := r.messagesKey(conversationID)

	var snapshot *redis.StringCmd
	var rows *redis.StringSliceCmd
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		snapshot = p.Get(ctx, memKey)
		rows = p.LRange(ctx, msgKey, 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", memKey).Msg("failed to load conversation memory from redis")
		return nil, errx.WrapRedis(err)
	}

	raw, err := snapshot.Result()
	missing := errors.Is(err, redis.Nil)
	if err != nil && !missing {
		return nil, errx.WrapRedis(err)
	}
	history, err := rows.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errx.WrapRedis(err)
	}
	if missing && len(history) == 0 {
		return nil, nil
	}

	var state model.TurnState
	if !missing {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to unmarshal memory snapshot")
			return nil, fmt.Errorf("unmarshal memory snapshot: %w", err)
		}
	}

	state.ChatHistory = make([]*schema.Message, 0, len(history))
	for i, s := range history {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		state.ChatHistory = append(state.ChatHistory, &m)
	}
	return &state, nil
}

func (r *RedisMemoryRepository) Save(ctx context.Context, conversationID string, memory model.TurnState, appended []*schema.Message) error {
	memory.ChatHistory = nil
	snapshot, err := json.Marshal(memory)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal memory snapshot")
		return fmt.Errorf("marshal memory snapshot: %w", err)
	}

	rows := make([]any, 0, len(appended))
	for _, m := range appended {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		rows = append(rows, b)
	}

	memKey := r.memoryKey(conversationID)
	msgKey := r.messagesKey(conversationID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, memKey, snapshot, r.ttl)
		if len(rows) > 0 {
			p.RPush(ctx, msgKey, rows...)
		}
		// extend TTL on touch
		if r.ttl > 0 {
			p.Expire(ctx, msgKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", memKey).Msg("failed to save conversation memory to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisMemoryRepository) Clear(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.memoryKey(conversationID), r.messagesKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to delete conversation memory from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisMemoryRepository) HistoryLength(ctx context.Context, conversationID string) (int, error) {
	key := r.messagesKey(conversationID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.MemoryRepository = (*RedisMemoryRepository)(nil)
