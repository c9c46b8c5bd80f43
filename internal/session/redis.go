package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wicaksana/lectern"
)

const keyPrefix = "lectern:session:"

// RedisManager stores sessions in redis so multiple processes can share
// conversation state. Each session is a JSON-encoded message slice with
// a sliding TTL.
type RedisManager struct {
	client      *redis.Client
	maxMessages int
	ttl         time.Duration
}

// RedisOption configures a RedisManager.
type RedisOption func(*RedisManager)

// WithTTL sets how long an idle session survives. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(m *RedisManager) { m.ttl = ttl }
}

// NewRedisManager connects to redis and verifies the connection.
func NewRedisManager(ctx context.Context, addr string, db, maxMessages int, opts ...RedisOption) (*RedisManager, error) {
	if maxMessages < 1 {
		maxMessages = 2
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	m := &RedisManager{client: client, maxMessages: maxMessages, ttl: 2 * time.Hour}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *RedisManager) Create() string {
	return lectern.NewID()
}

func (m *RedisManager) AddExchange(sessionID, question, answer string) error {
	ctx := context.Background()
	msgs, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}
	msgs = append(msgs,
		Message{Role: "user", Content: question},
		Message{Role: "assistant", Content: answer},
	)
	if max := m.maxMessages * 2; len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := m.client.Set(ctx, keyPrefix+sessionID, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (m *RedisManager) History(sessionID string) (string, error) {
	msgs, err := m.load(context.Background(), sessionID)
	if err != nil {
		return "", err
	}
	return Render(msgs), nil
}

func (m *RedisManager) Clear(sessionID string) error {
	if err := m.client.Del(context.Background(), keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (m *RedisManager) Close() error {
	return m.client.Close()
}

func (m *RedisManager) load(ctx context.Context, sessionID string) ([]Message, error) {
	data, err := m.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return msgs, nil
}
