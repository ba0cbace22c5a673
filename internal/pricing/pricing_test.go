package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func sampleInput() QuoteInput {
	g, c, m := scenarioA()
	var pack Packaging
	pack.Carton = PackagingItem{UnitPrice: 5, Quantity: 10}
	pack.Pallet = PackagingItem{UnitPrice: 50, Quantity: 1}

	return QuoteInput{
		Geometry: g,
		Material: m,
		Cutting:  c,
		Processes: []ProcessStep{
			{Code: "QC", Name: "全检", Category: CategoryInspection, DailyOutput: 2000, DailyFee: 400},
			{Code: "CNC", Name: "数控车", Category: CategoryTurning, DefectRate: 0.02, DailyOutput: 400, SetupDays: 0.5, DailyFee: 900},
		},
		Overhead: OverheadParams{
			ManagementRate:   0.1,
			ShippingBase:     500,
			BoxesPerShipment: 10,
			UnitsPerBox:      100,
			LoadFactor:       1,
		},
		Packaging:  pack,
		OtherCost:  0.05,
		LotSize:    1000,
		ProfitRate: Rate(0.2),
	}
}

func TestRollup(t *testing.T) {
	res, err := Rollup(Components{Material: 1, Process: 2, Overhead: 0.5, Packaging: 0.25, Other: 0.25}, Rate(0.3), 10)

	require.NoError(t, err)
	nearlyEqual(t, "subtotal", res.Breakdown.Subtotal, 4)
	nearlyEqual(t, "profit", res.Breakdown.Profit, 1.2)
	nearlyEqual(t, "unit price", res.Breakdown.UnitPrice, 5.2)
	nearlyEqual(t, "total", res.Totals.Total, 52)
}

func TestRollup_TotalIsUnitPriceTimesLot(t *testing.T) {
	for _, lot := range []int{1, 3, 7, 999, 123457} {
		res, err := Rollup(Components{Material: 0.1, Process: 1.0 / 3, Overhead: 0.07, Packaging: 0.011, Other: 0.2}, Rate(0.17), lot)
		require.NoError(t, err)
		assert.Equal(t, res.Breakdown.UnitPrice*float64(lot), res.Totals.Total)
	}
}

func TestRollup_MissingOrNegativeProfitRate(t *testing.T) {
	for name, rate := range map[string]*float64{"missing": nil, "negative": Rate(-0.1)} {
		t.Run(name, func(t *testing.T) {
			res, err := Rollup(Components{Material: 2}, rate, 10)

			require.ErrorIs(t, err, ErrInvalidProfitRate)
			nearlyEqual(t, "subtotal", res.Breakdown.Subtotal, 2)
			assert.Zero(t, res.Breakdown.Profit)
			assert.Zero(t, res.Breakdown.UnitPrice)
			assert.Zero(t, res.Totals.Total)
		})
	}
}

func TestRollup_ZeroProfitRateIsValid(t *testing.T) {
	res, err := Rollup(Components{Material: 2}, Rate(0), 10)

	require.NoError(t, err)
	nearlyEqual(t, "unit price", res.Breakdown.UnitPrice, 2)
	nearlyEqual(t, "total", res.Totals.Total, 20)
}

func TestRollup_ZeroLotSize(t *testing.T) {
	res, err := Rollup(Components{Material: 2}, Rate(0.1), 0)

	require.ErrorIs(t, err, ErrInvalidLotSize)
	nearlyEqual(t, "unit price", res.Breakdown.UnitPrice, 2.2)
	assert.Zero(t, res.Totals.Total)
}

func TestCompute_FullPipeline(t *testing.T) {
	in := sampleInput()

	res := Compute(in)

	require.True(t, res.OK(), "issues: %+v", res.Issues)

	material := CostForConfiguredBar(in.Geometry, in.Cutting, in.Material).CostPerPiece
	// CNC: ceil(1000*1.02)=1020 pcs, 2.55 days + 0.5 setup, 900/day.
	cnc := (1020.0/400 + 0.5) * 900 / 1000
	qc := (1000.0 / 2000) * 400 / 1000
	process := cnc + qc
	overhead := process*0.1 + 500.0/10/100/1
	packaging := (5.0*10 + 50) / 1000
	subtotal := material + process + overhead + packaging + 0.05

	nearlyEqual(t, "material", res.Breakdown.MaterialCost, material)
	nearlyEqual(t, "process", res.Breakdown.ProcessCost, process)
	nearlyEqual(t, "general management", res.Breakdown.GeneralManagement, process*0.1)
	nearlyEqual(t, "shipping", res.Breakdown.Shipping, 0.5)
	nearlyEqual(t, "overhead", res.Breakdown.OverheadCost, overhead)
	nearlyEqual(t, "packaging", res.Breakdown.PackagingCost, packaging)
	nearlyEqual(t, "other", res.Breakdown.OtherCost, 0.05)
	nearlyEqual(t, "subtotal", res.Breakdown.Subtotal, subtotal)
	nearlyEqual(t, "profit", res.Breakdown.Profit, subtotal*0.2)
	nearlyEqual(t, "unit price", res.Breakdown.UnitPrice, subtotal*1.2)
	assert.Equal(t, res.Breakdown.UnitPrice*1000, res.Totals.Total)

	require.Len(t, res.Steps, 2)
	assert.Equal(t, "CNC", res.Steps[0].Code)
	assert.Equal(t, "QC", res.Steps[1].Code)
	assert.Equal(t, 1020, res.Steps[0].Quantity)

	require.Len(t, res.Recommendations, 4)
	assert.Equal(t, 2500.0, res.Configured.BarLengthMM)
	assert.Equal(t, 2750.0, res.Recommendations[0].BarLengthMM)
}

func TestCompute_Idempotent(t *testing.T) {
	in := sampleInput()

	first := Compute(in)
	second := Compute(in)

	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.Totals.Total), math.Float64bits(second.Totals.Total))
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	in := sampleInput()
	snapshot := in.Clone()

	Compute(in)

	assert.Equal(t, snapshot, in)
	assert.Equal(t, "QC", in.Processes[0].Code)
}

func TestCompute_EmptySelection(t *testing.T) {
	in := sampleInput()
	in.Processes = nil

	res := Compute(in)

	require.True(t, res.OK(), "issues: %+v", res.Issues)
	assert.Equal(t, 0.0, res.Breakdown.ProcessCost)
	assert.Equal(t, 0.0, res.Breakdown.GeneralManagement)
	assert.Empty(t, res.Steps)
	assert.Greater(t, res.Totals.Total, 0.0)
}

func TestCompute_ZeroLotSize(t *testing.T) {
	in := sampleInput()
	in.LotSize = 0

	res := Compute(in)

	require.False(t, res.OK())
	assert.Equal(t, []Issue{{Field: "lot_size", Code: "invalid_lot_size", Message: ErrInvalidLotSize.Error()}}, res.Issues)
	assert.Zero(t, res.Breakdown.ProcessCost)
	assert.Zero(t, res.Breakdown.PackagingCost)
	assert.Zero(t, res.Totals.Total)
	assertFinite(t, res)
}

func TestCompute_UnknownMaterialDegrades(t *testing.T) {
	in := sampleInput()
	in.Material = Material{Code: "UNKNOWN"}

	res := Compute(in)

	assert.Empty(t, res.Recommendations)
	assert.Zero(t, res.Breakdown.MaterialCost)
	assert.Greater(t, res.Breakdown.ProcessCost, 0.0)
	assert.Contains(t, issueFields(res), "material.density_g_per_cm3")
	assert.Contains(t, issueFields(res), "material.price_per_kg")
	assertFinite(t, res)
}

func TestCompute_ZeroDailyOutputZeroesProcess(t *testing.T) {
	in := sampleInput()
	in.Processes[1].DailyOutput = 0

	res := Compute(in)

	assert.Zero(t, res.Breakdown.ProcessCost)
	assert.Zero(t, res.Breakdown.GeneralManagement)
	assert.Contains(t, issueFields(res), "processes[CNC].daily_output")
	assertFinite(t, res)
}

func TestCompute_ZeroShippingDivisor(t *testing.T) {
	in := sampleInput()
	in.Overhead.UnitsPerBox = 0

	res := Compute(in)

	assert.Zero(t, res.Breakdown.OverheadCost)
	assert.Equal(t, []string{"overhead.units_per_box"}, issueFields(res))
	assertFinite(t, res)
}

func TestCompute_ConfiguredBarTooShort(t *testing.T) {
	in := sampleInput()
	in.Cutting.BarLengthMM = 150

	res := Compute(in)

	assert.Zero(t, res.Breakdown.MaterialCost)
	assert.Len(t, res.Recommendations, 4)
	assert.Equal(t, []string{"cutting.bar_length_mm"}, issueFields(res))
}

func TestEngine_WithLadder(t *testing.T) {
	e := New(WithLadder(Ladder{MinMM: 1000, MaxMM: 1100, StepMM: 100, TopN: 10}))

	res := e.Compute(sampleInput())

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, 1100.0, res.Recommendations[0].BarLengthMM)
}

func issueFields(res Result) []string {
	var fields []string
	for _, i := range res.Issues {
		fields = append(fields, i.Field)
	}
	return fields
}

func assertFinite(t *testing.T, res Result) {
	t.Helper()
	b := res.Breakdown
	values := []float64{b.MaterialCost, b.ProcessCost, b.OverheadCost, b.GeneralManagement, b.Shipping, b.PackagingCost, b.OtherCost, b.Subtotal, b.Profit, b.UnitPrice, res.Totals.Total}
	for _, s := range res.Steps {
		values = append(values, s.Days, s.CostPerUnit)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite value in result: %+v", res)
		}
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("marshal result: %v", err)
	}
}

func TestCompute_TinyLoadFactorReported(t *testing.T) {
	in := sampleInput()
	in.Overhead.LoadFactor = 1e-320

	res := Compute(in)

	assert.Zero(t, res.Breakdown.Shipping)
	nearlyEqual(t, "overhead", res.Breakdown.OverheadCost, res.Breakdown.GeneralManagement)
	assert.Equal(t, []string{"shipping"}, issueFields(res))
	assert.Equal(t, "non_finite_result", res.Issues[0].Code)
	assertFinite(t, res)
}

func TestCompute_TinyDailyOutputReported(t *testing.T) {
	in := sampleInput()
	in.Processes[1].DailyOutput = 1e-320

	res := Compute(in)

	assert.Zero(t, res.Breakdown.ProcessCost)
	assert.Equal(t, []string{"processes[CNC].cost_per_unit"}, issueFields(res))
	assertFinite(t, res)
}

func TestCompute_HugePieceCountReported(t *testing.T) {
	in := sampleInput()
	in.Geometry.LengthMM = 1e-300
	in.Cutting.KerfMM = 0

	res := Compute(in)

	assert.Zero(t, res.Breakdown.MaterialCost)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, []string{"material_cost"}, issueFields(res))
	assertFinite(t, res)
}

func TestRollup_OverflowReported(t *testing.T) {
	res, err := Rollup(Components{Material: math.MaxFloat64, Process: math.MaxFloat64}, Rate(0.2), 10)

	require.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, []string{"subtotal"}, issueFields(Result{Issues: Issues(err)}))
	assert.Zero(t, res.Totals.Total)
	assertFinite(t, res)

	res, err = Rollup(Components{Material: math.MaxFloat64 / 2}, Rate(0.2), 10)
	require.ErrorIs(t, err, ErrNonFinite)
	assert.Equal(t, []string{"total"}, issueFields(Result{Issues: Issues(err)}))
	assertFinite(t, res)
}
