package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meetspace-api/internal/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxDuration bounds a recording whose stop never arrives.
const DefaultMaxDuration = 4 * time.Hour

// RedisStore shares recording state between instances. A recording is a
// key created with SET NX, so only one instance can start it.
type RedisStore struct {
	client      redis.UniversalClient
	maxDuration time.Duration
}

// NewRedisStore creates a store on client. maxDuration <= 0 uses DefaultMaxDuration.
func NewRedisStore(client redis.UniversalClient, maxDuration time.Duration) *RedisStore {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &RedisStore{client: client, maxDuration: maxDuration}
}

func recordingKey(resourceID string) string {
	return fmt.Sprintf("recording:%s", resourceID)
}

func savedKey(resourceID string) string {
	return fmt.Sprintf("recording:saved:%s", resourceID)
}

// Save appends rec as JSON to the resource's saved list.
func (s *RedisStore) Save(ctx context.Context, resourceID string, rec domain.SavedRecording) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode saved recording: %w", err)
	}
	if err := s.client.RPush(ctx, savedKey(resourceID), payload).Err(); err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}

// Saved reads the resource's saved list in save order.
func (s *RedisStore) Saved(ctx context.Context, resourceID string) ([]domain.SavedRecording, error) {
	raw, err := s.client.LRange(ctx, savedKey(resourceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recordings: %w", err)
	}
	out := make([]domain.SavedRecording, 0, len(raw))
	for _, item := range raw {
		var rec domain.SavedRecording
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode saved recording: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Start sets the recording key if absent.
func (s *RedisStore) Start(ctx context.Context, resourceID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, recordingKey(resourceID), time.Now().UTC().Format(time.RFC3339Nano), s.maxDuration).Result()
	if err != nil {
		return false, fmt.Errorf("failed to start recording: %w", err)
	}
	return ok, nil
}

// Stop deletes the recording key.
func (s *RedisStore) Stop(ctx context.Context, resourceID string) (bool, error) {
	n, err := s.client.Del(ctx, recordingKey(resourceID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to stop recording: %w", err)
	}
	return n > 0, nil
}
