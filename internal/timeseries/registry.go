package timeseries

import (
	"fmt"
	"log/slog"
	"time"
)

// DeltaEnsembleDef names the two ensembles a delta ensemble subtracts:
// EnsembleA minus EnsembleB.
type DeltaEnsembleDef struct {
	EnsembleA string `json:"ensembleA" yaml:"ensembleA" validate:"required"`
	EnsembleB string `json:"ensembleB" yaml:"ensembleB" validate:"required"`
}

// AccessorName returns the registry key for the delta ensemble.
func (d DeltaEnsembleDef) AccessorName() string {
	return fmt.Sprintf("(%s)-(%s)", d.EnsembleA, d.EnsembleB)
}

// RegistryParams carries everything needed to build the name-to-accessor
// mapping for one dashboard view.
type RegistryParams struct {
	// EnsembleNames lists the plain ensembles to expose. Each must have a
	// provider in Providers.
	EnsembleNames []string
	// DeltaEnsembles lists the delta ensembles to expose; both referenced
	// ensembles must have providers.
	DeltaEnsembles []DeltaEnsembleDef
	// Providers maps ensemble name to its summary provider.
	Providers map[string]SummaryProvider

	VectorNames         []string
	Expressions         []Expression
	ResamplingFrequency Frequency
	RelativeDate        time.Time
	Evaluator           Evaluator
	Cache               Cache
	Logger              *slog.Logger
}

// BuildAccessorRegistry builds the accessor for every plain and delta
// ensemble named in params, keyed by ensemble name (delta ensembles by
// "(A)-(B)"). Fails with ErrUnknownEnsemble when a referenced ensemble has
// no provider.
func BuildAccessorRegistry(params RegistryParams) (map[string]VectorsAccessor, error) {
	cfg := AccessorConfig{
		VectorNames:         params.VectorNames,
		Expressions:         params.Expressions,
		ResamplingFrequency: params.ResamplingFrequency,
		RelativeDate:        params.RelativeDate,
		Evaluator:           params.Evaluator,
		Cache:               params.Cache,
		Logger:              params.Logger,
	}

	registry := make(map[string]VectorsAccessor, len(params.EnsembleNames)+len(params.DeltaEnsembles))
	for _, name := range params.EnsembleNames {
		provider, ok := params.Providers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEnsemble, name)
		}
		accessor, err := NewEnsembleVectorsAccessor(provider, cfg)
		if err != nil {
			return nil, fmt.Errorf("build accessor for %s: %w", name, err)
		}
		registry[name] = accessor
	}

	for _, def := range params.DeltaEnsembles {
		providerA, ok := params.Providers[def.EnsembleA]
		if !ok {
			return nil, fmt.Errorf("%w: %s (delta ensemble %s)", ErrUnknownEnsemble, def.EnsembleA, def.AccessorName())
		}
		providerB, ok := params.Providers[def.EnsembleB]
		if !ok {
			return nil, fmt.Errorf("%w: %s (delta ensemble %s)", ErrUnknownEnsemble, def.EnsembleB, def.AccessorName())
		}
		accessor, err := NewDeltaEnsembleVectorsAccessor([]SummaryProvider{providerA, providerB}, cfg)
		if err != nil {
			return nil, fmt.Errorf("build accessor for %s: %w", def.AccessorName(), err)
		}
		registry[def.AccessorName()] = accessor
	}

	return registry, nil
}
