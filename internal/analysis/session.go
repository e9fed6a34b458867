package analysis

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/seenimoa/stockdash/pkg/models"
)

// ErrSuperseded is returned for a run that finished after a newer run on
// the same Session had started. Its result is discarded.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

// Session orders the runs of one interactive client. Only the most recently
// started run may deliver a result; older runs are not cancelled but their
// results are dropped when they arrive.
type Session struct {
	ID  string
	svc *Service
	seq atomic.Uint64
}

// NewSession starts a session with a fresh ID.
func (s *Service) NewSession() *Session {
	return &Session{ID: uuid.NewString(), svc: s}
}

// Begin stamps a new run and returns its sequence number.
func (ss *Session) Begin() uint64 {
	return ss.seq.Add(1)
}

// Current reports whether run is still the latest one.
func (ss *Session) Current(run uint64) bool {
	return ss.seq.Load() == run
}

// Analyze runs the pipeline and returns ErrSuperseded if another Analyze
// began on this session while it was in flight.
func (ss *Session) Analyze(ctx context.Context, raw string, rng models.Range) (*models.Analysis, error) {
	run := ss.Begin()
	a, err := ss.svc.Analyze(ctx, raw, rng)
	if !ss.Current(run) {
		return nil, ErrSuperseded
	}
	return a, err
}
