package pricing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidLotSize     = errors.New("lot size must be greater than zero")
	ErrInvalidProfitRate  = errors.New("profit rate is required and must not be negative")
	ErrZeroDailyOutput    = errors.New("daily output must be greater than zero")
	ErrInvalidDivisor     = errors.New("divisor must be greater than zero")
	ErrIncompleteStock    = errors.New("stock optimizer input missing or not positive")
	ErrNoPieces           = errors.New("bar length yields no pieces")
	ErrNegativeValue      = errors.New("value must not be negative")
	ErrUnknownPackaging   = errors.New("unknown packaging kind")
	ErrUnresolvedMaterial = errors.New("material not found in catalog")
	ErrUnresolvedProcess  = errors.New("process not found in catalog")
	ErrNonFinite          = errors.New("result is not a finite number")
)

var issueCodes = map[error]string{
	ErrInvalidLotSize:     "invalid_lot_size",
	ErrInvalidProfitRate:  "invalid_profit_rate",
	ErrZeroDailyOutput:    "zero_daily_output",
	ErrInvalidDivisor:     "invalid_divisor",
	ErrIncompleteStock:    "incomplete_stock_input",
	ErrNoPieces:           "no_pieces",
	ErrNegativeValue:      "negative_value",
	ErrUnknownPackaging:   "unknown_packaging_kind",
	ErrUnresolvedMaterial: "material_not_found",
	ErrUnresolvedProcess:  "process_not_found",
	ErrNonFinite:          "non_finite_result",
}

// finite reports whether v is neither NaN nor an infinity.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// Issue is the serializable form of a FieldError reported alongside a Result.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Issues flattens err (including errors.Join trees) into one Issue per FieldError.
// Errors without a field are reported with an empty Field.
func Issues(err error) []Issue {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []Issue
		for _, e := range joined.Unwrap() {
			out = append(out, Issues(e)...)
		}
		return out
	}

	issue := Issue{Code: "invalid", Message: err.Error()}
	var fe *FieldError
	if errors.As(err, &fe) {
		issue.Field = fe.Field
		issue.Message = fe.Err.Error()
	}
	for sentinel, code := range issueCodes {
		if errors.Is(err, sentinel) {
			issue.Code = code
			break
		}
	}
	return []Issue{issue}
}
