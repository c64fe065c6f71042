// Package timeseries implements the derived-vector computation layer for
// reservoir-simulation ensemble dashboards.
//
// Given one or two ensemble summary providers, the package computes raw
// vectors, delta ensembles (elementwise ensemble-A-minus-ensemble-B aligned
// on date and realization), per-interval and per-day rates derived from
// cumulative vectors, user-defined calculated vectors, and
// relative-to-date rebasing of any vector set.
//
// # Core Components
//
//   - types.go: Frame (vector table), DateColumn with tagged
//     representations, Expression, Frequency, capability interfaces
//   - datetime.go: DATE column assertion and normalization to canonical
//     UTC millisecond datetimes
//   - cumulative.go: cumulative-to-rate transform and the
//     PER_DAY_/PER_INTVL_ naming rules
//   - relative.go: relative-to-date rebasing
//   - classify.go: partitioning of requested vector names into provider,
//     rate and calculated kinds
//   - accessor.go: single-ensemble derived-vectors accessor
//   - delta.go: delta-ensemble derived-vectors accessor
//   - registry.go: accessor factory for a mix of plain and delta ensembles
//   - provider.go, memprovider.go: the SummaryProvider boundary and an
//     in-memory implementation
//
// # Data Model
//
// All operations work on frames: tables keyed by (DATE, REAL) with one
// float64 column per vector. Frames are treated as immutable; every
// transforming operation returns a fresh frame sorted by REAL then DATE
// with dense indexing. DATE columns carry a representation tag so that
// raw timestamps read from columnar storage are normalized exactly once,
// keeping date arithmetic well-defined beyond the year-2262 nanosecond
// range.
//
// # Usage Example
//
//	store, err := arrowstore.Open(storeRoot)
//	if err != nil {
//	    return err
//	}
//	provider, err := store.Provider(ctx, "iter-0")
//	if err != nil {
//	    return err
//	}
//
//	accessor, err := timeseries.NewEnsembleVectorsAccessor(provider, timeseries.AccessorConfig{
//	    VectorNames:         []string{"FOPT", "PER_DAY_FOPT", "OIL_EFF"},
//	    Expressions:         expressions,
//	    ResamplingFrequency: timeseries.FrequencyMonthly,
//	    RelativeDate:        refDate,
//	    Evaluator:           calc.NewEvaluator(),
//	    Cache:               cache,
//	    Logger:              logger,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if accessor.HasRateVectors() {
//	    frame, err := accessor.GetRateVectors(ctx, nil)
//	    ...
//	}
//
// Delta ensembles use the same configuration over a provider pair, or go
// through BuildAccessorRegistry which keys them as "(A)-(B)".
//
// # Concurrency
//
// Accessors are immutable after construction and hold no shared mutable
// state, so concurrent reads need no locking. Queries are synchronous;
// the only blocking call is the provider fetch, which receives the query
// context. Failures surface immediately to the caller with no retries and
// no partial results.
package timeseries
