package pricing

import (
	"errors"
	"math"
	"sort"
)

// massUnitFactor converts mm² · mm · g/cm³ into grams.
const massUnitFactor = 1000.0

// Ladder is the discrete set of raw-bar lengths the optimizer evaluates.
type Ladder struct {
	MinMM  float64
	MaxMM  float64
	StepMM float64
	// TopN is the number of ranked candidates returned.
	TopN int
}

// DefaultLadder evaluates 46 lengths from 500 mm to 2750 mm and keeps the best 4.
var DefaultLadder = Ladder{MinMM: 500, MaxMM: 2750, StepMM: 50, TopN: 4}

// Lengths returns every bar length on the ladder in ascending order.
func (l Ladder) Lengths() []float64 {
	if l.StepMM <= 0 || l.MaxMM < l.MinMM {
		return []float64{l.MinMM}
	}
	n := int(math.Floor((l.MaxMM-l.MinMM)/l.StepMM+1e-9)) + 1
	lengths := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		lengths = append(lengths, l.MinMM+float64(i)*l.StepMM)
	}
	return lengths
}

// StockCandidate is the yield and cost of cutting the part from one bar length.
type StockCandidate struct {
	BarLengthMM   float64 `json:"bar_length_mm"`
	PiecesPerBar  int     `json:"pieces_per_bar"`
	MassPerPieceG float64 `json:"mass_per_piece_g"`
	CostPerPiece  float64 `json:"cost_per_piece"`
}

// stockInputErr reports which optimizer inputs are missing or not positive.
func stockInputErr(g PartGeometry, c CuttingParams, m Material) error {
	var errs []error
	if !(g.LengthMM > 0) {
		errs = append(errs, fieldErr("geometry.length_mm", ErrIncompleteStock))
	}
	if !(g.OuterDiameterMM > 0) {
		errs = append(errs, fieldErr("geometry.outer_diameter_mm", ErrIncompleteStock))
	}
	if !(m.DensityGPerCm3 > 0) {
		errs = append(errs, fieldErr("material.density_g_per_cm3", ErrIncompleteStock))
	}
	if !(m.PricePerKg > 0) {
		errs = append(errs, fieldErr("material.price_per_kg", ErrIncompleteStock))
	}
	if g.LengthMM > 0 && !(g.LengthMM+c.KerfMM > 0) {
		errs = append(errs, fieldErr("cutting.kerf_mm", ErrInvalidDivisor))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// piecesPerBar is floor((L - endWaste) / (partLength + kerf)). ok is false
// when the count does not fit an int.
func piecesPerBar(barLength float64, g PartGeometry, c CuttingParams) (int, bool) {
	n := math.Floor((barLength - c.EndWasteMM) / (g.LengthMM + c.KerfMM))
	if !finite(n) || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// evaluate costs a single bar length. It fails with ErrNoPieces when the bar
// yields no piece and ErrNonFinite when a value overflows.
func evaluate(barLength float64, g PartGeometry, c CuttingParams, m Material) (StockCandidate, error) {
	pieces, ok := piecesPerBar(barLength, g, c)
	if !ok {
		return StockCandidate{}, ErrNonFinite
	}
	if pieces <= 0 {
		return StockCandidate{}, ErrNoPieces
	}
	radius := g.OuterDiameterMM / 2
	mass := math.Pi * radius * radius * barLength / float64(pieces) * m.DensityGPerCm3 / massUnitFactor
	cost := mass * (m.PricePerKg / 1000) * (1 + c.MaterialDefectRate) * (1 + c.MaterialManagementRate)
	if !finite(mass) || !finite(cost) {
		return StockCandidate{}, ErrNonFinite
	}
	return StockCandidate{
		BarLengthMM:   barLength,
		PiecesPerBar:  pieces,
		MassPerPieceG: mass,
		CostPerPiece:  cost,
	}, nil
}

// Recommend ranks every ladder length by cost per piece and returns the
// cheapest TopN. Lengths yielding no piece or a non-finite cost are discarded. Incomplete inputs
// give an empty list. cuttingParams.BarLengthMM is not read.
func (l Ladder) Recommend(g PartGeometry, c CuttingParams, m Material) []StockCandidate {
	candidates := make([]StockCandidate, 0, l.TopN)
	if stockInputErr(g, c, m) != nil {
		return candidates
	}

	for _, length := range l.Lengths() {
		if cand, err := evaluate(length, g, c, m); err == nil {
			candidates = append(candidates, cand)
		}
	}

	// Stable keeps the shorter bar first on equal cost.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CostPerPiece < candidates[j].CostPerPiece
	})

	if l.TopN > 0 && len(candidates) > l.TopN {
		candidates = candidates[:l.TopN]
	}
	return candidates
}

// RecommendStock ranks the DefaultLadder. The first entry is the optimum for
// display only; it does not replace the configured bar length.
func RecommendStock(g PartGeometry, c CuttingParams, m Material) []StockCandidate {
	return DefaultLadder.Recommend(g, c, m)
}

// CostForConfiguredBar applies the ladder formula to c.BarLengthMM, whether or
// not it is on the ladder. Incomplete inputs, a bar yielding no piece or a
// non-finite cost give a zero-cost candidate.
func CostForConfiguredBar(g PartGeometry, c CuttingParams, m Material) StockCandidate {
	cand, _ := configuredBar(g, c, m)
	return cand
}

// configuredBar is CostForConfiguredBar with the reason for a zero cost.
func configuredBar(g PartGeometry, c CuttingParams, m Material) (StockCandidate, error) {
	zero := StockCandidate{BarLengthMM: c.BarLengthMM}
	if err := stockInputErr(g, c, m); err != nil {
		return zero, err
	}
	cand, err := evaluate(c.BarLengthMM, g, c, m)
	switch {
	case errors.Is(err, ErrNoPieces):
		return zero, fieldErr("cutting.bar_length_mm", err)
	case err != nil:
		return zero, fieldErr("material_cost", err)
	}
	return cand, nil
}
