package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The server uses it to keep per-project entries apart on a shared
// Redis backend.
//
// Example usage:
//
//	// Project-specific keys
//	projKeyer := NewScopedKeyer(NewDefaultKeyer(), "proj:plant42:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DiagramKey generates a prefixed key for parsed diagram documents.
func (k *ScopedKeyer) DiagramKey(source, contentHash string) string {
	return k.prefix + k.inner.DiagramKey(source, contentHash)
}

// ResultKey generates a prefixed key for optimization results.
func (k *ScopedKeyer) ResultKey(diagramHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(diagramHash, opts)
}

// SnapshotKey generates a prefixed key for rendered snapshots.
func (k *ScopedKeyer) SnapshotKey(diagramHash string, opts SnapshotKeyOpts) string {
	return k.prefix + k.inner.SnapshotKey(diagramHash, opts)
}

// ScoreKey generates a prefixed key for visual-quality scores.
func (k *ScopedKeyer) ScoreKey(imageHash string, opts ScoreKeyOpts) string {
	return k.prefix + k.inner.ScoreKey(imageHash, opts)
}
