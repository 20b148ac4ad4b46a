package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gomes-camila/clinica-bot/models"

	"github.com/go-redis/redis/v8"
)

const (
	sessionPrefix = "wa:session:"
	buttonsPrefix = "wa:buttons:"
)

// RedisStore is a SessionStore backed by Redis with TTL expiry, for
// deployments where conversation state should survive a restart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, phone string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+phone).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, phone string, session *models.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionPrefix+phone, b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, sessionPrefix+phone, buttonsPrefix+phone).Err()
}

func (s *RedisStore) Buttons(ctx context.Context, phone string) (models.ButtonMap, error) {
	data, err := s.client.Get(ctx, buttonsPrefix+phone).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var buttons models.ButtonMap
	if err := json.Unmarshal([]byte(data), &buttons); err != nil {
		return nil, err
	}
	return buttons, nil
}

func (s *RedisStore) PutButtons(ctx context.Context, phone string, buttons models.ButtonMap) error {
	b, err := json.Marshal(buttons)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, buttonsPrefix+phone, b, s.ttl).Err()
}
