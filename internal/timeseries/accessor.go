package timeseries

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VectorsAccessor is the query surface the dashboard layer reads derived
// vectors through. Implementations are immutable after construction and
// safe to share across readers; every query either returns a fully
// populated frame or fails.
type VectorsAccessor interface {
	HasProviderVectors() bool
	HasRateVectors() bool
	HasCalculatedVectors() bool

	// GetProviderVectors returns the classified provider vectors fetched
	// at the accessor's resampling frequency, rebased when a relative
	// date is configured. A nil realizations slice means all.
	GetProviderVectors(ctx context.Context, realizations []int) (Frame, error)

	// GetRateVectors returns the classified per-day/per-interval vectors
	// derived from their cumulative counterparts.
	GetRateVectors(ctx context.Context, realizations []int) (Frame, error)

	// GetCalculatedVectors returns the classified calculator-expression
	// vectors.
	GetCalculatedVectors(ctx context.Context, realizations []int) (Frame, error)

	// ValidRealizationsQuery returns nil when the accessor's known
	// realizations are all contained in selected (no filter needed), and
	// otherwise the intersection preserving selected's order, which may
	// be empty. A nil selected means no filter was requested.
	ValidRealizationsQuery(selected []int) []int
}

// AccessorConfig carries the construction-time inputs shared by the
// single-ensemble and delta-ensemble accessors. All fields are fixed for
// the accessor's lifetime.
type AccessorConfig struct {
	// VectorNames is the full list of requested vector names, classified
	// eagerly at construction.
	VectorNames []string
	// Expressions supplies the calculator expressions requested names may
	// refer to. Only expressions with IsValid set participate.
	Expressions []Expression
	// ResamplingFrequency is honored only when the provider supports
	// resampling; otherwise it is silently treated as FrequencyNone.
	ResamplingFrequency Frequency
	// RelativeDate, when non-zero, rebases every query result so the
	// value at this date becomes the zero point per realization.
	RelativeDate time.Time
	// Evaluator is required when any requested name matches an
	// expression.
	Evaluator Evaluator
	// Cache, when set, memoizes query results keyed by accessor identity,
	// method and arguments.
	Cache Cache
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// EnsembleVectorsAccessor computes derived vectors for a single ensemble
// provider.
type EnsembleVectorsAccessor struct {
	id             string
	provider       SummaryProvider
	classification VectorClassification
	expressions    map[string]Expression
	frequency      Frequency
	relativeDate   time.Time
	evaluator      Evaluator
	cache          Cache
	logger         *slog.Logger
	realizations   []int
}

// NewEnsembleVectorsAccessor classifies the requested vector names against
// the provider and returns a read-only accessor over it.
func NewEnsembleVectorsAccessor(provider SummaryProvider, cfg AccessorConfig) (*EnsembleVectorsAccessor, error) {
	if provider == nil {
		return nil, fmt.Errorf("nil summary provider")
	}
	if !cfg.ResamplingFrequency.IsValid() {
		return nil, fmt.Errorf("unrecognized resampling frequency %q", string(cfg.ResamplingFrequency))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	frequency := cfg.ResamplingFrequency
	if !provider.SupportsResampling() {
		frequency = FrequencyNone
	}

	classification := ClassifyVectors(cfg.VectorNames, provider.VectorNames(), cfg.Expressions)
	if len(classification.Calculated) > 0 && cfg.Evaluator == nil {
		return nil, fmt.Errorf("calculator expressions requested without an evaluator")
	}

	a := &EnsembleVectorsAccessor{
		id:             uuid.NewString(),
		provider:       provider,
		classification: classification,
		expressions:    expressionsByName(cfg.Expressions),
		frequency:      frequency,
		relativeDate:   cfg.RelativeDate,
		evaluator:      cfg.Evaluator,
		cache:          cfg.Cache,
		logger:         logger,
		realizations:   provider.Realizations(),
	}

	logger.Debug("built ensemble vectors accessor",
		"accessor_id", a.id,
		"provider_vectors", len(classification.Provider),
		"rate_vectors", len(classification.Rate),
		"calculated_vectors", len(classification.Calculated),
		"frequency", frequency.String(),
		"relative_date", formatRelativeDate(cfg.RelativeDate),
	)
	return a, nil
}

// HasProviderVectors reports whether any requested name classified as a
// native provider vector.
func (a *EnsembleVectorsAccessor) HasProviderVectors() bool {
	return len(a.classification.Provider) > 0
}

// HasRateVectors reports whether any requested name classified as a
// per-day/per-interval vector.
func (a *EnsembleVectorsAccessor) HasRateVectors() bool {
	return len(a.classification.Rate) > 0
}

// HasCalculatedVectors reports whether any requested name classified as a
// calculator-expression vector.
func (a *EnsembleVectorsAccessor) HasCalculatedVectors() bool {
	return len(a.classification.Calculated) > 0
}

// GetProviderVectors fetches the classified provider vectors.
func (a *EnsembleVectorsAccessor) GetProviderVectors(ctx context.Context, realizations []int) (Frame, error) {
	if !a.HasProviderVectors() {
		return Frame{}, fmt.Errorf("%w: accessor %s", ErrNoProviderVectors, a.id)
	}
	key := cacheKey(a.id, "provider", realizations)
	if frame, ok := cacheGet(a.cache, key); ok {
		return frame, nil
	}

	frame, err := a.fetch(ctx, a.classification.Provider, realizations)
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
// their cumulative counterparts. Per-day and per-interval requests may
// coexist; the per-name results are inner-joined column-wise on
// (DATE, REAL).
func (a *EnsembleVectorsAccessor) GetRateVectors(ctx context.Context, realizations []int) (Frame, error) {
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
	fetched, err := a.fetch(ctx, cumulatives, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("get rate vectors: %w", err)
	}

	frame, err := deriveRateVectors(fetched, a.classification.Rate)
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

// GetCalculatedVectors evaluates the classified calculator expressions.
// Each expression's referenced vectors are fetched at the accessor's
// frequency and evaluated to one column; the per-expression results are
// inner-joined column-wise on (DATE, REAL).
func (a *EnsembleVectorsAccessor) GetCalculatedVectors(ctx context.Context, realizations []int) (Frame, error) {
	if !a.HasCalculatedVectors() {
		return Frame{}, fmt.Errorf("%w: accessor %s", ErrNoCalculatedExpressions, a.id)
	}
	key := cacheKey(a.id, "calculated", realizations)
	if frame, ok := cacheGet(a.cache, key); ok {
		return frame, nil
	}

	frames := make([]Frame, 0, len(a.classification.Calculated))
	for _, name := range a.classification.Calculated {
		expression := a.expressions[name]
		fetched, err := a.fetch(ctx, expression.RequiredVectorNames(), realizations)
		if err != nil {
			return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
		}
		frame, err := evaluateExpression(a.evaluator, expression, fetched)
		if err != nil {
			return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
		}
		frames = append(frames, frame)
	}

	joined, err := JoinFrames(frames)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
	}
	joined, err = a.finish(joined)
	if err != nil {
		return Frame{}, fmt.Errorf("get calculated vectors: %w", err)
	}
	cachePut(a.cache, key, joined)
	return joined, nil
}

// ValidRealizationsQuery implements the realization-filter containment
// rule; see VectorsAccessor.
func (a *EnsembleVectorsAccessor) ValidRealizationsQuery(selected []int) []int {
	return validRealizationsQuery(a.realizations, selected)
}

// fetch pulls vectors through the provider at the accessor's frequency and
// normalizes the DATE column so joins and transforms see canonical dates.
func (a *EnsembleVectorsAccessor) fetch(ctx context.Context, names []string, realizations []int) (Frame, error) {
	frame, err := a.provider.GetVectors(ctx, names, a.frequency, realizations)
	if err != nil {
		return Frame{}, fmt.Errorf("provider fetch %v: %w", names, err)
	}
	return NormalizeDateColumn(frame)
}

// finish applies the output invariants shared by all queries: REAL-then-
// DATE ordering with dense indexing, then relative-date rebasing when
// configured.
func (a *EnsembleVectorsAccessor) finish(frame Frame) (Frame, error) {
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

// deriveRateVectors computes each requested rate vector from a frame of
// fetched cumulatives and inner-joins the per-name results. Output columns
// are named from the cumulative, so two requested spellings of the same
// derived vector collide in the join.
func deriveRateVectors(cumulativeFrame Frame, rateNames []string) (Frame, error) {
	frames := make([]Frame, 0, len(rateNames))
	for _, name := range rateNames {
		cumulative, err := CumulativeNameFor(name)
		if err != nil {
			return Frame{}, err
		}
		one, err := cumulativeFrame.SelectVectors([]string{cumulative})
		if err != nil {
			return Frame{}, err
		}
		derived, err := ComputeRateVectors(one, strings.HasPrefix(name, PerDayPrefix))
		if err != nil {
			return Frame{}, fmt.Errorf("derive %s: %w", name, err)
		}
		frames = append(frames, derived)
	}
	return JoinFrames(frames)
}

// evaluateExpression evaluates one expression over a frame holding its
// referenced vectors and returns a frame with the expression's output
// column.
func evaluateExpression(evaluator Evaluator, expression Expression, fetched Frame) (Frame, error) {
	variables := make(map[string][]float64, len(expression.VariableVectorMap))
	for variable, vector := range expression.VariableVectorMap {
		values, ok := fetched.Vector(vector)
		if !ok {
			return Frame{}, fmt.Errorf("%w: %s (variable %s of expression %s)", ErrUnknownVector, vector, variable, expression.Name)
		}
		variables[variable] = values
	}
	values, err := evaluator.Evaluate(expression.Expression, variables)
	if err != nil {
		return Frame{}, fmt.Errorf("evaluate %s: %w", expression.Name, err)
	}
	return NewFrame(fetched.Dates(), fetched.Reals(), []Series{{Name: expression.Name, Values: values}})
}

// cumulativeNames maps rate-vector names to their distinct cumulative
// counterparts, preserving first-seen order.
func cumulativeNames(rateNames []string) ([]string, error) {
	seen := make(map[string]struct{}, len(rateNames))
	var names []string
	for _, name := range rateNames {
		cumulative, err := CumulativeNameFor(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[cumulative]; ok {
			continue
		}
		seen[cumulative] = struct{}{}
		names = append(names, cumulative)
	}
	return names, nil
}

// validRealizationsQuery returns nil when known ⊆ selected, and otherwise
// the intersection preserving selected's order. A nil selected means no
// filter was requested.
func validRealizationsQuery(known, selected []int) []int {
	if selected == nil {
		return nil
	}
	selectedSet := make(map[int]struct{}, len(selected))
	for _, r := range selected {
		selectedSet[r] = struct{}{}
	}
	contained := true
	for _, r := range known {
		if _, ok := selectedSet[r]; !ok {
			contained = false
			break
		}
	}
	if contained {
		return nil
	}

	knownSet := make(map[int]struct{}, len(known))
	for _, r := range known {
		knownSet[r] = struct{}{}
	}
	intersection := []int{}
	for _, r := range selected {
		if _, ok := knownSet[r]; ok {
			intersection = append(intersection, r)
		}
	}
	return intersection
}

func expressionsByName(expressions []Expression) map[string]Expression {
	byName := make(map[string]Expression, len(expressions))
	for _, e := range expressions {
		if e.IsValid {
			byName[e.Name] = e
		}
	}
	return byName
}

func formatRelativeDate(d time.Time) string {
	if d.IsZero() {
		return "none"
	}
	return d.Format("2006-01-02")
}

// cacheKey derives the memoization key for a query from the accessor
// identity, the method and its arguments.
func cacheKey(accessorID, method string, realizations []int) string {
	var b strings.Builder
	b.WriteString(accessorID)
	b.WriteByte(':')
	b.WriteString(method)
	b.WriteByte(':')
	if realizations == nil {
		b.WriteString("all")
		return b.String()
	}
	for i, r := range realizations {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}

func cacheGet(cache Cache, key string) (Frame, bool) {
	if cache == nil {
		return Frame{}, false
	}
	return cache.Get(key)
}

func cachePut(cache Cache, key string, frame Frame) {
	if cache == nil {
		return
	}
	cache.Put(key, frame)
}
