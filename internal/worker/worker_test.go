package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestLatestDrafts(t *testing.T) {
	a, q1, q2 := uuid.New(), uuid.New(), uuid.New()
	first, second, other := uuid.New(), uuid.New(), uuid.New()

	got := latestDrafts([]draftRow{
		{attemptID: a, questionID: q1, optionID: first},
		{attemptID: a, questionID: q2, optionID: other},
		{attemptID: a, questionID: q1, optionID: second},
	})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].questionID != q1 || got[0].optionID != second {
		t.Errorf("got[0] = %+v, want q1 with the later option", got[0])
	}
	if got[1].questionID != q2 || got[1].optionID != other {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestDecodeDraft(t *testing.T) {
	a, q, o := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"attempt_id":"` + a.String() + `","q_id":"` + q.String() + `","option_id":"` + o.String() + `"}`, false},
		{"not json", `nope`, true},
		{"bad option", `{"attempt_id":"` + a.String() + `","q_id":"` + q.String() + `","option_id":"x"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := decodeDraft(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (row.attemptID != a || row.questionID != q || row.optionID != o) {
				t.Errorf("row = %+v", row)
			}
		})
	}
}

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) SweepExpired(context.Context) (int, error) {
	s.calls.Add(1)
	return 1, nil
}

func TestSweepWorker(t *testing.T) {
	s := &countingSweeper{}
	w := NewSweepWorker(s, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if s.calls.Load() < 2 {
		t.Errorf("sweeps = %d, want at least 2", s.calls.Load())
	}
}

func TestSweepWorkerDisabled(t *testing.T) {
	s := &countingSweeper{}
	// Returns immediately instead of blocking on the context.
	NewSweepWorker(s, 0, zerolog.Nop()).Start(context.Background())
	if s.calls.Load() != 0 {
		t.Errorf("disabled sweeper ran %d times", s.calls.Load())
	}
}
