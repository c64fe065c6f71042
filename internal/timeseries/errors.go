package timeseries

import "errors"

// Derived-vector computation errors. All are precondition or validation
// failures surfaced immediately to the caller; nothing is retried and
// there is no partial-result mode. Wrap with fmt.Errorf("...: %w", ...)
// and match with errors.Is.
var (
	// Frame shape errors
	ErrMissingRequiredColumns = errors.New("frame is missing required DATE and REAL columns")
	ErrInvalidDateColumn      = errors.New("invalid DATE column")
	ErrUnsupportedDateType    = errors.New("unsupported DATE representation")

	// Rate-vector naming errors
	ErrNotARateVector = errors.New("name does not carry a rate-vector prefix")

	// Accessor query guards
	ErrNoProviderVectors       = errors.New("accessor has no provider vectors")
	ErrNoRateVectors           = errors.New("accessor has no per-interval or per-day vectors")
	ErrNoCalculatedExpressions = errors.New("accessor has no calculator expressions")

	// Delta-ensemble construction errors
	ErrInvalidProviderPair       = errors.New("delta ensemble requires exactly two providers")
	ErrResamplingSupportMismatch = errors.New("delta ensemble providers disagree on resampling support")

	// Lookup errors
	ErrUnknownVector   = errors.New("unknown vector requested")
	ErrUnknownEnsemble = errors.New("unknown ensemble name")
)
