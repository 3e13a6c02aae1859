// Package cache provides the caching layer for the re-layout pipeline:
// a backend-agnostic Cache interface with file, Redis, and null
// implementations, plus key generation for the pipeline's stages.
//
// Keys are content-addressed: a diagram's cache identity is the hash of
// its serialized form, so edits to the source file naturally invalidate
// every downstream entry (routing results, snapshots, scores).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Stage TTLs. Results and snapshots are pure functions of the diagram
// content and parameters, so they can live long; scores cost API money
// and live longest.
const (
	// TTLDiagram is the lifetime for parsed diagram documents.
	TTLDiagram = 24 * time.Hour

	// TTLResult is the lifetime for optimization results.
	TTLResult = 7 * 24 * time.Hour

	// TTLSnapshot is the lifetime for rendered snapshots.
	TTLSnapshot = 7 * 24 * time.Hour

	// TTLScore is the lifetime for visual-quality scores.
	TTLScore = 30 * 24 * time.Hour
)

// Cache is the storage backend interface. Implementations must treat a
// missing key as (nil, false, nil), not an error.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found
	// and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a time-to-live. A TTL of 0 means the entry
	// never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ResultKeyOpts are the routing parameters that shape an optimization
// result. Any field change must produce a different key.
type ResultKeyOpts struct {
	BaseOffset    float64 `json:"base_offset"`
	MaxOffset     float64 `json:"max_offset"`
	CommonXOffset float64 `json:"common_x_offset"`
	ScaleFactor   float64 `json:"scale_factor"`
	MinSpacing    float64 `json:"min_spacing"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"max_iterations"`
	Preserve      bool    `json:"preserve"`
}

// SnapshotKeyOpts identify a rendered snapshot variant.
type SnapshotKeyOpts struct {
	Format    string  `json:"format"` // "svg", "png", or "dot"
	Scale     float64 `json:"scale"`
	Ports     bool    `json:"ports"`
	Crossings bool    `json:"crossings"`
}

// ScoreKeyOpts identify a visual-scoring request variant.
type ScoreKeyOpts struct {
	Model string `json:"model"`
	Mode  string `json:"mode"` // "api" or "manual"
}

// Keyer generates cache keys for the pipeline's stages.
type Keyer interface {
	// DiagramKey identifies a parsed diagram document by source name and
	// content hash.
	DiagramKey(source, contentHash string) string

	// ResultKey identifies an optimization result for one diagram under
	// one parameter set.
	ResultKey(diagramHash string, opts ResultKeyOpts) string

	// SnapshotKey identifies a rendered image of one routed diagram.
	SnapshotKey(diagramHash string, opts SnapshotKeyOpts) string

	// ScoreKey identifies a visual-quality score for one snapshot.
	ScoreKey(imageHash string, opts ScoreKeyOpts) string
}

// DefaultKeyer is the stock key scheme. Keys embed a stage prefix so a
// shared backend can be inspected and selectively purged by stage.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the stock keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// DiagramKey generates a key for parsed diagram documents.
func (k *DefaultKeyer) DiagramKey(source, contentHash string) string {
	return "diagram:" + source + ":" + contentHash
}

// ResultKey generates a key for optimization results.
func (k *DefaultKeyer) ResultKey(diagramHash string, opts ResultKeyOpts) string {
	return hashKey("result", diagramHash, opts)
}

// SnapshotKey generates a key for rendered snapshots.
func (k *DefaultKeyer) SnapshotKey(diagramHash string, opts SnapshotKeyOpts) string {
	return hashKey("snapshot", diagramHash, opts)
}

// ScoreKey generates a key for visual-quality scores.
func (k *DefaultKeyer) ScoreKey(imageHash string, opts ScoreKeyOpts) string {
	return hashKey("score", imageHash, opts)
}

// hashKey builds a stage-prefixed key from the hash of its parts. The
// parts are JSON-encoded so option structs key by value: two parameter
// sets produce the same key exactly when every field matches.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Hash returns the hex SHA-256 of data. It is the content identity used
// throughout the pipeline: diagram files, routed documents, and snapshot
// images are all addressed by this hash.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
