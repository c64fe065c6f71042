package timeseries

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// DeltaEnsembleVectorsAccessor computes derived vectors for a delta
// ensemble: ensemble A minus ensemble B, aligned on (DATE, REAL). Its
// realization universe is the intersection of both providers' realization
// sets, and its vector-name universe the intersection of both providers'
// vector names.
type DeltaEnsembleVectorsAccessor struct {
	id             string
	providerA      SummaryProvider
	providerB      SummaryProvider
	classification VectorClassification
	expressions    map[string]Expression
	frequency      Frequency
	relativeDate   time.Time
	evaluator      Evaluator
	cache          Cache
	logger         *slog.Logger
	realizations   []int
}

// NewDeltaEnsembleVectorsAccessor builds an accessor over a provider pair.
// Construction fails with ErrInvalidProviderPair unless exactly two
// non-nil providers are given, and with ErrResamplingSupportMismatch when
// the two disagree on resampling capability.
func NewDeltaEnsembleVectorsAccessor(providers []SummaryProvider, cfg AccessorConfig) (*DeltaEnsembleVectorsAccessor, error) {
	if len(providers) != 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidProviderPair, len(providers))
	}
	providerA, providerB := providers[0], providers[1]
	if providerA == nil || providerB == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidProviderPair)
	}
	if providerA.SupportsResampling() != providerB.SupportsResampling() {
		return nil, ErrResamplingSupportMismatch
	}
	if !cfg.ResamplingFrequency.IsValid() {
		return nil, fmt.Errorf("unrecognized resampling frequency %q", string(cfg.ResamplingFrequency))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	frequency := cfg.ResamplingFrequency
	if !providerA.SupportsResampling() {
		frequency = FrequencyNone
	}

	names := intersectStrings(providerA.VectorNames(), providerB.VectorNames())
	classification := ClassifyVectors(cfg.VectorNames, names, cfg.Expressions)
	if len(classification.Calculated) > 0 && cfg.Evaluator == nil {
		return nil, fmt.Errorf("calculator expressions requested without an evaluator")
	}

	a := &DeltaEnsembleVectorsAccessor{
		id:             uuid.NewString(),
		providerA:      providerA,
		providerB:      providerB,
		classification: classification,
		expressions:    expressionsByName(cfg.Expressions),
		frequency:      frequency,
		relativeDate:   cfg.RelativeDate,
		evaluator:      cfg.Evaluator,
		cache:          cfg.Cache,
		logger:         logger,
		realizations:   intersectInts(providerA.Realizations(), providerB.Realizations()),
	}

	logger.Debug("built delta ensemble vectors accessor",
		"accessor_id", a.id,
		"shared_realizations", len(a.realizations),
		"provider_vectors", len(classification.Provider),
		"rate_vectors", len(classification.Rate),
		"calculated_vectors", len(classification.Calculated),
		"frequency", frequency.String(),
		"relative_date", formatRelativeDate(cfg.RelativeDate),
	)
	return a, nil
}

// HasProviderVectors reports whether any requested name classified as a
// vector shared by both providers.
func (a *DeltaEnsembleVectorsAccessor) HasProviderVectors() bool {
	return len(a.classification.Provider) > 0
}

// HasRateVectors reports whether any requested name classified as a
// per-day/per-interval vector over a shared cumulative.
func (a *DeltaEnsembleVectorsAccessor) HasRateVectors() bool {
	return len(a.classification.Rate) > 0
}

// HasCalculatedVectors reports whether any requested name classified as a
// calculator-expression vector.
func (a *DeltaEnsembleVectorsAccessor) HasCalculatedVectors() bool {
	return len(a.classification.Calculated) > 0
}

// GetProviderVectors fetches the classified vectors from both providers
// and returns their aligned difference A-B.
func (a *DeltaEnsembleVectorsAccessor) GetProviderVectors(ctx context.Context, realizations []int) (Frame, error) {
	if !a.HasProviderVectors() {
		return Frame{}, fmt.Errorf("%w: accessor %s", ErrNoProviderVectors, a.id)
	}
	key := cacheKey(a.id, "provider", realizations)
	if frame, ok := cacheGet(a.cache, key); ok {
		return frame, nil
	}

	frame, err := a.fetchDelta(ctx, a.classification.Provider, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("get provider vectors: %w", err)
	}
	frame, err = a.finish(frame)
	if err != nil {
		return Frame{}, fmt.Errorf("get provider vectors: %w", err)
	}
	cachePut(a.cache, key, frame)
	return frame, nil
}

// GetRateVectors derives the classified per-day/per-interval vectors from
// the delta of the underlying cumulatives, so the transform operates on an
// already-differenced cumulative series.
func (a *DeltaEnsembleVectorsAccessor) GetRateVectors(ctx context.Context, realizations []int) (Frame, error) {
	if !a.HasRateVectors() {
		return Frame{}, fmt.Errorf("%w: accessor %s", ErrNoRateVectors, a.id)
	}
	key := cacheKey(a.id, "rate", realizations)
	if frame, ok := cacheGet(a.cache, key); ok {
		return frame, nil
	}

	cumulatives, err := cumulativeNames(a.classification.Rate)
	if err != nil {
		return Frame{}, fmt.Errorf("get rate vectors: %w", err)
	}
	delta, err := a.fetchDelta(ctx, cumulatives, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("get rate vectors: %w", err)
	}

	frame, err := deriveRateVectors(delta, a.classification.Rate)
	if err != nil {
		return Frame{}, fmt.Errorf("get rate vectors: %w", err)
	}
	frame, err = a.finish(frame)
	if err != nil {
		return Frame{}, fmt.Errorf("get rate vectors: %w", err)
	}
	cachePut(a.cache, key, frame)
	return frame, nil
}

// GetCalculatedVectors evaluates each expression separately against
// ensemble A and against ensemble B, joins each side's per-expression
// results, and subtracts the B side from the A side row-aligned on
// (DATE, REAL). Compute-then-subtract, not subtract-then-compute:
// expressions are not generally linear.
func (a *DeltaEnsembleVectorsAccessor) GetCalculatedVectors(ctx context.Context, realizations []int) (Frame, error) {
	if !a.HasCalculatedVectors() {
		return Frame{}, fmt.Errorf("%w: accessor %s", ErrNoCalculatedExpressions, a.id)
	}
	key := cacheKey(a.id, "calculated", realizations)
	if frame, ok := cacheGet(a.cache, key); ok {
		return frame, nil
	}

	sideA, err := a.calculatedSide(ctx, a.providerA, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors (ensemble A): %w", err)
	}
	sideB, err := a.calculatedSide(ctx, a.providerB, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors (ensemble B): %w", err)
	}

	frame, err := subtractFrames(sideA, sideB)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
	}
	frame, err = a.finish(frame)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
	}
	cachePut(a.cache, key, frame)
	return frame, nil
}

// ValidRealizationsQuery implements the realization-filter containment
// rule over the intersection realization set; see VectorsAccessor.
func (a *DeltaEnsembleVectorsAccessor) ValidRealizationsQuery(selected []int) []int {
	return validRealizationsQuery(a.realizations, selected)
}

// fetchDelta fetches the named vectors from both providers, aligns them on
// (DATE, REAL) and subtracts B from A. Rows present on only one side are
// dropped.
func (a *DeltaEnsembleVectorsAccessor) fetchDelta(ctx context.Context, names []string, realizations []int) (Frame, error) {
	reals := a.queryRealizations(realizations)
	frameA, err := fetchNormalized(ctx, a.providerA, names, a.frequency, reals)
	if err != nil {
		return Frame{}, fmt.Errorf("ensemble A: %w", err)
	}
	frameB, err := fetchNormalized(ctx, a.providerB, names, a.frequency, reals)
	if err != nil {
		return Frame{}, fmt.Errorf("ensemble B: %w", err)
	}
	return subtractFrames(frameA, frameB)
}

// calculatedSide evaluates every classified expression against a single
// provider and joins the per-expression columns.
func (a *DeltaEnsembleVectorsAccessor) calculatedSide(ctx context.Context, provider SummaryProvider, realizations []int) (Frame, error) {
	reals := a.queryRealizations(realizations)
	frames := make([]Frame, 0, len(a.classification.Calculated))
	for _, name := range a.classification.Calculated {
		expression := a.expressions[name]
		fetched, err := fetchNormalized(ctx, provider, expression.RequiredVectorNames(), a.frequency, reals)
		if err != nil {
			return Frame{}, err
		}
		frame, err := evaluateExpression(a.evaluator, expression, fetched)
		if err != nil {
			return Frame{}, err
		}
		frames = append(frames, frame)
	}
	return JoinFrames(frames)
}

// queryRealizations restricts a query's realization filter to the shared
// realization universe, so neither provider is asked for realizations the
// other lacks.
func (a *DeltaEnsembleVectorsAccessor) queryRealizations(selected []int) []int {
	if selected == nil {
		return a.realizations
	}
	return intersectInts(selected, a.realizations)
}

// finish applies the delta output invariants: REAL-then-DATE ordering with
// dense indexing, then relative-date rebasing when configured. The DATE
// column is canonical by construction at this point; normalization
// happened on fetch, before alignment.
func (a *DeltaEnsembleVectorsAccessor) finish(frame Frame) (Frame, error) {
	frame = frame.SortByRealAndDate()
	if a.relativeDate.IsZero() {
		return frame, nil
	}
	rebased, err := RebaseToDate(frame, a.relativeDate)
	if err != nil {
		return Frame{}, fmt.Errorf("rebase to %s: %w", a.relativeDate.Format("2006-01-02"), err)
	}
	return rebased, nil
}

// fetchNormalized pulls vectors through one provider and normalizes the
// DATE column so alignment keys are well-defined.
func fetchNormalized(ctx context.Context, provider SummaryProvider, names []string, freq Frequency, realizations []int) (Frame, error) {
	frame, err := provider.GetVectors(ctx, names, freq, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("provider fetch %v: %w", names, err)
	}
	return NormalizeDateColumn(frame)
}

// subtractFrames inner-joins two frames on (DATE, REAL) and subtracts B's
// values from A's for every vector column. Both frames must carry the same
// vector columns; rows missing from either side are dropped.
func subtractFrames(frameA, frameB Frame) (Frame, error) {
	lookup := make(map[rowKey]int, frameB.NumRows())
	for row := 0; row < frameB.NumRows(); row++ {
		lookup[frameB.rowKeyAt(row)] = row
	}

	var rowsA, rowsB []int
	for row := 0; row < frameA.NumRows(); row++ {
		other, ok := lookup[frameA.rowKeyAt(row)]
		if !ok {
			continue
		}
		rowsA = append(rowsA, row)
		rowsB = append(rowsB, other)
	}

	aligned := frameA.takeRows(rowsA)
	for c, col := range aligned.Columns() {
		bValues, ok := frameB.Vector(col.Name)
		if !ok {
			return Frame{}, fmt.Errorf("%w: %s missing from ensemble B", ErrUnknownVector, col.Name)
		}
		subtrahend := make([]float64, len(rowsB))
		for i, row := range rowsB {
			subtrahend[i] = bValues[row]
		}
		floats.Sub(aligned.Columns()[c].Values, subtrahend)
	}
	return aligned, nil
}

func intersectStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func intersectInts(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, r := range b {
		set[r] = struct{}{}
	}
	out := []int{}
	seen := make(map[int]struct{}, len(a))
	for _, r := range a {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if _, ok := set[r]; ok {
			out = append(out, r)
		}
	}
	sort.Ints(out)
	return out
}

var _ VectorsAccessor = (*EnsembleVectorsAccessor)(nil)
var _ VectorsAccessor = (*DeltaEnsembleVectorsAccessor)(nil)
