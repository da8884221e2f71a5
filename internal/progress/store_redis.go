package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tutr:progress:"

// RedisStore persists student progress records as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed progress store.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context, studentID string) (*StudentRecord, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+studentID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("student %q: %w", studentID, ErrStudentNotFound)
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	rec := newStudentRecord(studentID)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode progress record: %w", err)
	}
	rec.StudentID = studentID
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *StudentRecord) error {
	if rec == nil || rec.StudentID == "" {
		return fmt.Errorf("student record with student_id is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode progress record: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+rec.StudentID, data, 0).Err(); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
