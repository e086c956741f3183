package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/etests/etests-backend/internal/config"
	"github.com/etests/etests-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExamCache is a read-through Redis cache of full exam trees in front of
// ExamRepository. Redis failures fall back to PostgreSQL.
type ExamCache struct {
	exams *ExamRepository
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewExamCache creates a new ExamCache.
func NewExamCache(exams *ExamRepository, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamCache {
	return &ExamCache{
		exams: exams,
		rdb:   rdb,
		ttl:   ttl,
		log:   log.With().Str("component", "exam_cache").Logger(),
	}
}

// GetTree returns the exam tree, populating the cache on a miss.
func (c *ExamCache) GetTree(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamTreeKey(id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var exam model.Exam
		if err := json.Unmarshal(data, &exam); err == nil {
			return &exam, nil
		}
		c.log.Warn().Str("exam_id", id.String()).Msg("Corrupt cached exam tree, reloading")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Exam cache read failed")
	}

	exam, err := c.exams.GetTree(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(exam); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Exam cache write failed")
		}
	}
	return exam, nil
}

// Invalidate drops the cached tree. Called after every authoring write.
func (c *ExamCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.rdb.Del(ctx, config.CacheKey.ExamTreeKey(id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Exam cache invalidation failed")
	}
}
