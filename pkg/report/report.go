// Package report persists optimization run history.
//
// A Run records one invocation of the engine over a diagram file: the
// parameters used, the per-sub-diagram reports, and the optional visual
// score. Two Store backends are provided: a file store for the CLI
// (one JSON document per run under ~/.local/share/wiretidy/runs/) and a
// MongoDB store for the server.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wiretidy/wiretidy/pkg/engine"
	"github.com/wiretidy/wiretidy/pkg/score"
)

// Sentinel errors for run storage.
var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("run not found")
)

// Run is one persisted optimization run.
type Run struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Source is the diagram file or request identity the run operated on.
	Source string `json:"source" bson:"source"`

	Params  engine.Params    `json:"params" bson:"params"`
	Results []*engine.Report `json:"results" bson:"results"`

	// Score is the visual evaluation, when scoring ran.
	Score *score.Result `json:"score,omitempty" bson:"score,omitempty"`
}

// NewRun creates a run with a fresh ID and timestamp.
func NewRun(source string, params engine.Params, results []*engine.Report) *Run {
	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Params:    params,
		Results:   results,
	}
}

// TotalImprovement sums the score deltas across all sub-diagrams.
func (r *Run) TotalImprovement() float64 {
	total := 0.0
	for _, res := range r.Results {
		total += res.Improvement()
	}
	return total
}

// Store persists runs.
type Store interface {
	// Save stores a run. Saving an existing ID overwrites it.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. Limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
