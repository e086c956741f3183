package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/etests/etests-backend/internal/config"
	"github.com/etests/etests-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DraftBatchSize    = 100
	DraftBatchTimeout = 2 * time.Second
	DraftPollTimeout  = 1 * time.Second
)

// DraftWorker drains persist_drafts_queue into attempt_drafts. Drafts for
// attempts that are already submitted are dropped.
type DraftWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewDraftWorker creates a new DraftWorker.
func NewDraftWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *DraftWorker {
	return &DraftWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "draft_worker").Logger(),
	}
}

type draftRow struct {
	attemptID  uuid.UUID
	questionID uuid.UUID
	optionID   uuid.UUID
}

// Start runs until ctx is cancelled, then flushes what it holds. Call in a
// goroutine.
func (w *DraftWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]draftRow, 0, DraftBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= DraftBatchSize || time.Since(lastFlush) >= DraftBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested, flushing batch")
			w.flushSafe(context.Background(), batch)
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, DraftPollTimeout, config.WorkerKey.PersistDraftsQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				time.Sleep(DraftPollTimeout)
			}
			continue
		}
		if len(item) < 2 {
			continue
		}

		row, err := decodeDraft(item[1])
		if err != nil {
			w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid draft payload")
			continue
		}
		batch = append(batch, row)
	}
}

func decodeDraft(raw string) (draftRow, error) {
	var p repository.DraftPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return draftRow{}, err
	}
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		return draftRow{}, err
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return draftRow{}, err
	}
	optionID, err := uuid.Parse(p.OptionID)
	if err != nil {
		return draftRow{}, err
	}
	return draftRow{attemptID: attemptID, questionID: questionID, optionID: optionID}, nil
}

// latestDrafts keeps only the last selection per (attempt, question) so a
// single UPSERT never touches the same row twice.
func latestDrafts(batch []draftRow) []draftRow {
	type key struct{ attempt, question uuid.UUID }
	seen := make(map[key]int, len(batch))
	out := make([]draftRow, 0, len(batch))
	for _, r := range batch {
		k := key{r.attemptID, r.questionID}
		if i, ok := seen[k]; ok {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}

func (w *DraftWorker) flushSafe(ctx context.Context, batch []draftRow) {
	if len(batch) == 0 {
		return
	}
	rows := latestDrafts(batch)

	if err := w.bulkUpsert(ctx, rows); err != nil {
		w.log.Warn().Err(err).Int("rows", len(rows)).Msg("Bulk draft upsert failed, using fallback")

		for _, r := range rows {
			if err := w.upsertSingle(ctx, r); err != nil {
				w.log.Error().Err(err).Str("attempt_id", r.attemptID.String()).Msg("Draft upsert failed, requeueing")
				raw, _ := json.Marshal(repository.DraftPayload{
					AttemptID:  r.attemptID.String(),
					QuestionID: r.questionID.String(),
					OptionID:   r.optionID.String(),
				})
				w.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, raw)
			}
		}
	}
}

func (w *DraftWorker) bulkUpsert(ctx context.Context, rows []draftRow) error {
	attempts := make([]uuid.UUID, len(rows))
	questions := make([]uuid.UUID, len(rows))
	options := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		attempts[i] = r.attemptID
		questions[i] = r.questionID
		options[i] = r.optionID
	}

	query := `
		INSERT INTO attempt_drafts (attempt_id, question_id, option_id, updated_at)
		SELECT u.attempt_id, u.question_id, u.option_id, NOW()
		FROM UNNEST($1::uuid[], $2::uuid[], $3::uuid[]) AS u (attempt_id, question_id, option_id)
		JOIN attempts a ON a.id = u.attempt_id AND NOT a.is_submitted
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, updated_at = EXCLUDED.updated_at
	`
	_, err := w.pool.Exec(ctx, query, attempts, questions, options)
	return err
}

func (w *DraftWorker) upsertSingle(ctx context.Context, r draftRow) error {
	_, err := w.pool.Exec(ctx, `
		INSERT INTO attempt_drafts (attempt_id, question_id, option_id, updated_at)
		SELECT $1, $2, $3, NOW()
		WHERE EXISTS (SELECT 1 FROM attempts WHERE id = $1 AND NOT is_submitted)
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, updated_at = EXCLUDED.updated_at`,
		r.attemptID, r.questionID, r.optionID,
	)
	return err
}
