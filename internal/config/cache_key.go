package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamTreeKey returns the cache key for an exam's authoritative question tree.
// The value includes correctness flags and is only ever read server-side.
func (r *CacheKeyStruct) ExamTreeKey(examID uuid.UUID) string {
	return fmt.Sprintf("exam:%s:tree", examID)
}

// AttemptDraftsKey returns the cache key for an attempt's autosaved selections
// (hash of question_id -> option_id).
func (r *CacheKeyStruct) AttemptDraftsKey(attemptID uuid.UUID) string {
	return fmt.Sprintf("attempt:%s:drafts", attemptID)
}

var CacheKey = NewCacheKeyStruct()
