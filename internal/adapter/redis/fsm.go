package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escalopa/kid-reader-bot/internal/domain"
)

const (
	sessionKeyPrefix = "reader:session:"
	stateField       = "state"
	dataFieldPrefix  = "data:"
	sessionTTL       = 30 * 24 * time.Hour
)

// ErrDataNotFound is returned by GetData when the field has no value
var ErrDataNotFound = errors.New("data not found")

// Connect parses uri and checks the server answers
func Connect(uri string) (*redis.Client, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis URI: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}

// FSM keeps each learner's UI state and session values in one hash. Every
// write pushes the expiry of the whole session forward.
type FSM struct {
	client *redis.Client
}

func NewFSM(client *redis.Client) *FSM {
	return &FSM{client: client}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func (f *FSM) set(ctx context.Context, userID, field, value string) error {
	key := sessionKey(userID)
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		pipe.Expire(ctx, key, sessionTTL)
		return nil
	})
	return err
}

func (f *FSM) SetState(ctx context.Context, userID string, state domain.State) error {
	if err := f.set(ctx, userID, stateField, string(state)); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// GetState returns StateStart for a learner with no session
func (f *FSM) GetState(ctx context.Context, userID string) (domain.State, error) {
	val, err := f.client.HGet(ctx, sessionKey(userID), stateField).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StateStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	return domain.State(val), nil
}

func (f *FSM) DeleteState(ctx context.Context, userID string) error {
	return f.client.HDel(ctx, sessionKey(userID), stateField).Err()
}

func (f *FSM) SetData(ctx context.Context, userID, key, value string) error {
	if err := f.set(ctx, userID, dataFieldPrefix+key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (f *FSM) GetData(ctx context.Context, userID, key string) (string, error) {
	val, err := f.client.HGet(ctx, sessionKey(userID), dataFieldPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrDataNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

func (f *FSM) DeleteData(ctx context.Context, userID, key string) error {
	return f.client.HDel(ctx, sessionKey(userID), dataFieldPrefix+key).Err()
}
