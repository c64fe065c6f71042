package timeseries

import (
	"context"
	"fmt"
)

// InMemoryProvider serves vectors from a frame held in memory. It backs
// tests and small ad hoc datasets; it stores a single native sampling and
// does not resample.
type InMemoryProvider struct {
	frame              Frame
	supportsResampling bool
}

// NewInMemoryProvider wraps a frame as a SummaryProvider. The frame's DATE
// column must be canonical.
func NewInMemoryProvider(frame Frame) *InMemoryProvider {
	return &InMemoryProvider{frame: frame}
}

// SetResamplingSupported overrides the advertised resampling capability.
// The provider still serves its native sampling regardless; the flag
// exists so capability-agreement checks can be exercised against in-memory
// data.
func (p *InMemoryProvider) SetResamplingSupported(supported bool) {
	p.supportsResampling = supported
}

// VectorNames returns the names of the stored vectors.
func (p *InMemoryProvider) VectorNames() []string {
	return p.frame.VectorNames()
}

// Realizations returns the distinct realization ids, ascending.
func (p *InMemoryProvider) Realizations() []int {
	return p.frame.UniqueRealizations()
}

// SupportsResampling reports the configured resampling capability.
func (p *InMemoryProvider) SupportsResampling() bool {
	return p.supportsResampling
}

// GetVectors returns the requested vectors restricted to the given
// realizations. The resampling frequency is ignored; the native sampling
// is served.
func (p *InMemoryProvider) GetVectors(ctx context.Context, names []string, freq Frequency, realizations []int) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, fmt.Errorf("get vectors: %w", err)
	}
	selected, err := p.frame.SelectVectors(names)
	if err != nil {
		return Frame{}, err
	}
	return selected.FilterRealizations(realizations), nil
}
