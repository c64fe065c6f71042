package timeseries

import "context"

// SummaryProvider is the boundary to an ensemble's stored simulation
// results. Implementations are black boxes to the accessors: file-backed,
// in-memory and mock providers all satisfy it. Provider I/O is an opaque
// blocking call; failures propagate to the caller without retry.
type SummaryProvider interface {
	// VectorNames returns the names of all vectors the ensemble stores.
	VectorNames() []string

	// Realizations returns the realization ids present in the ensemble.
	Realizations() []int

	// SupportsResampling reports whether GetVectors honors a resampling
	// frequency. Accessors silently treat any requested frequency as
	// FrequencyNone when this is false.
	SupportsResampling() bool

	// GetVectors returns a frame with columns DATE, REAL and the named
	// vectors, resampled to freq when supported, restricted to the given
	// realizations (nil means all). Fails with ErrUnknownVector when a
	// requested name is not stored.
	GetVectors(ctx context.Context, names []string, freq Frequency, realizations []int) (Frame, error)
}
