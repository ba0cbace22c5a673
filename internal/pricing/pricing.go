package pricing

import (
	"errors"

	"golang.org/x/text/language"
)

// Components are the five per-unit costs that make up the subtotal.
type Components struct {
	Material  float64
	Process   float64
	Overhead  float64
	Packaging float64
	Other     float64
}

// Sum is the subtotal A, added in a fixed order.
func (c Components) Sum() float64 {
	return c.Material + c.Process + c.Overhead + c.Packaging + c.Other
}

// Breakdown contains all per-unit line items of a quote.
type Breakdown struct {
	MaterialCost      float64 `json:"material_cost"`
	ProcessCost       float64 `json:"process_cost"`
	OverheadCost      float64 `json:"overhead_cost"`
	GeneralManagement float64 `json:"general_management"`
	Shipping          float64 `json:"shipping"`
	PackagingCost     float64 `json:"packaging_cost"`
	OtherCost         float64 `json:"other_cost"`
	Subtotal          float64 `json:"subtotal"`
	Profit            float64 `json:"profit"`
	UnitPrice         float64 `json:"unit_price"`
}

// Totals contains lot-level values.
type Totals struct {
	LotSize int     `json:"lot_size"`
	Total   float64 `json:"total"`
}

// Result groups the full output of a computation. It is a disposable
// projection of one QuoteInput.
type Result struct {
	Breakdown       Breakdown        `json:"breakdown"`
	Totals          Totals           `json:"totals"`
	Configured      StockCandidate   `json:"configured_stock"`
	Recommendations []StockCandidate `json:"recommendations"`
	Steps           []StepCost       `json:"steps"`
	Issues          []Issue          `json:"issues"`
}

// OK reports whether the result was computed without issues.
func (r Result) OK() bool {
	return len(r.Issues) == 0
}

// Rollup combines the components:
//
//	A = material + process + overhead + packaging + other
//	M = A * profitRate
//	N = A + M
//	total = N * lotSize
//
// A is always filled. M and N need a present, non-negative profitRate; total
// additionally needs lotSize > 0. Missing values are left at zero and reported,
// as is any component or product that is not finite.
func Rollup(c Components, profitRate *float64, lotSize int) (Result, error) {
	var errs []error
	for _, comp := range []struct {
		field string
		v     *float64
	}{
		{"material_cost", &c.Material},
		{"process_cost", &c.Process},
		{"overhead_cost", &c.Overhead},
		{"packaging_cost", &c.Packaging},
		{"other_cost", &c.Other},
	} {
		if !finite(*comp.v) {
			*comp.v = 0
			errs = append(errs, fieldErr(comp.field, ErrNonFinite))
		}
	}

	res := Result{
		Breakdown: Breakdown{
			MaterialCost:  c.Material,
			ProcessCost:   c.Process,
			OverheadCost:  c.Overhead,
			PackagingCost: c.Packaging,
			OtherCost:     c.Other,
			Subtotal:      c.Sum(),
		},
		Totals: Totals{LotSize: lotSize},
	}

	if !finite(res.Breakdown.Subtotal) {
		res.Breakdown.Subtotal = 0
		errs = append(errs, fieldErr("subtotal", ErrNonFinite))
	}
	rateOK := profitRate != nil && *profitRate >= 0 && finite(*profitRate)
	if !rateOK {
		errs = append(errs, fieldErr("profit_rate", ErrInvalidProfitRate))
	}
	if lotSize <= 0 {
		errs = append(errs, fieldErr("lot_size", ErrInvalidLotSize))
	}
	if !rateOK {
		return res, errors.Join(errs...)
	}

	profit := res.Breakdown.Subtotal * *profitRate
	unit := res.Breakdown.Subtotal + profit
	switch {
	case !finite(profit):
		errs = append(errs, fieldErr("profit", ErrNonFinite))
	case !finite(unit):
		errs = append(errs, fieldErr("unit_price", ErrNonFinite))
	default:
		res.Breakdown.Profit = profit
		res.Breakdown.UnitPrice = unit
		if lotSize > 0 {
			total := unit * float64(lotSize)
			if finite(total) {
				res.Totals.Total = total
			} else {
				errs = append(errs, fieldErr("total", ErrNonFinite))
			}
		}
	}
	return res, errors.Join(errs...)
}

// Engine computes quotes with a fixed ladder and collation locale. An Engine
// holds no mutable state and may be shared.
type Engine struct {
	ladder Ladder
	locale language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithLadder replaces DefaultLadder.
func WithLadder(l Ladder) Option {
	return func(e *Engine) { e.ladder = l }
}

// WithLocale sets the locale used to order step names within a category.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) { e.locale = tag }
}

// New returns an Engine using DefaultLadder and DefaultLocale unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{ladder: DefaultLadder, locale: DefaultLocale}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Compute runs the full pipeline with the default engine.
func Compute(in QuoteInput) Result {
	return defaultEngine.Compute(in)
}

// Compute derives the whole cost breakdown from in. It never fails: invalid
// input zeroes the affected costs and is listed in Result.Issues. Equal inputs
// give identical results.
func (e *Engine) Compute(in QuoteInput) Result {
	var errs []error

	// Material: configured bar, not the ranked optimum.
	recs := e.ladder.Recommend(in.Geometry, in.Cutting, in.Material)
	configured, err := configuredBar(in.Geometry, in.Cutting, in.Material)
	if err != nil {
		errs = append(errs, err)
	}

	// Process.
	ordered := OrderStepsIn(e.locale, in.Processes)
	var steps []StepCost
	var processCost float64
	if in.LotSize > 0 {
		var err error
		steps, err = CostSteps(ordered, in.LotSize)
		if err == nil {
			processCost, err = sumSteps(steps)
		}
		if err != nil {
			errs = append(errs, err)
		}
	} else {
		// Reported once by Rollup.
		steps, _ = CostSteps(ordered, in.LotSize)
	}

	// Overhead.
	overhead, err := AllocateOverhead(processCost, in.Overhead)
	if err != nil {
		errs = append(errs, err)
	}

	// Packaging; an invalid lot is reported by Rollup.
	packaging, _ := PackagingPerUnit(in.Packaging.Items(), in.LotSize)

	res, err := Rollup(Components{
		Material:  configured.CostPerPiece,
		Process:   processCost,
		Overhead:  overhead.Total(),
		Packaging: packaging,
		Other:     in.OtherCost,
	}, in.ProfitRate, in.LotSize)
	if err != nil {
		errs = append(errs, err)
	}

	res.Breakdown.GeneralManagement = overhead.GeneralManagement
	res.Breakdown.Shipping = overhead.Shipping
	res.Configured = configured
	res.Recommendations = recs
	res.Steps = steps
	res.Issues = Issues(errors.Join(errs...))
	return res
}

// Recommend ranks the engine's ladder for the given inputs.
func (e *Engine) Recommend(g PartGeometry, c CuttingParams, m Material) []StockCandidate {
	return e.ladder.Recommend(g, c, m)
}

// OrderSteps orders steps with the engine's locale.
func (e *Engine) OrderSteps(steps []ProcessStep) []ProcessStep {
	return OrderStepsIn(e.locale, steps)
}
