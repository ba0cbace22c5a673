package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func codes(steps []ProcessStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Code)
	}
	return out
}

func TestOrderSteps_InspectionSelectedBeforeTurning(t *testing.T) {
	selected := []ProcessStep{
		{Code: "QC", Name: "Inspection", Category: CategoryInspection},
		{Code: "TURN", Name: "Turning", Category: CategoryTurning},
	}

	ordered := OrderSteps(selected)

	assert.Equal(t, []string{"TURN", "QC"}, codes(ordered))
	assert.Equal(t, []string{"QC", "TURN"}, codes(selected), "input must not be reordered")
}

func TestOrderSteps_FullPriorityTable(t *testing.T) {
	var selected []ProcessStep
	for i := len(Categories) - 1; i >= 0; i-- {
		selected = append(selected, ProcessStep{Code: string(Categories[i]), Category: Categories[i]})
	}
	selected = append([]ProcessStep{{Code: "laser", Category: "laser_marking"}}, selected...)

	ordered := OrderSteps(selected)

	require.Len(t, ordered, len(Categories)+1)
	for i, c := range Categories {
		assert.Equal(t, c, ordered[i].Category)
	}
	assert.Equal(t, "laser", ordered[len(ordered)-1].Code, "unknown categories sort last")
}

func TestOrderSteps_TieBreaksByName(t *testing.T) {
	selected := []ProcessStep{
		{Code: "M2", Name: "Milling B", Category: CategoryMilling},
		{Code: "M1", Name: "Milling A", Category: CategoryMilling},
		{Code: "T1", Name: "Turning Z", Category: CategoryTurning},
	}

	assert.Equal(t, []string{"T1", "M1", "M2"}, codes(OrderStepsIn(language.English, selected)))
	assert.Equal(t, []string{"T1", "M1", "M2"}, codes(OrderSteps(selected)))
}

func TestOrderSteps_LocaleAwareNames(t *testing.T) {
	selected := []ProcessStep{
		{Code: "b", Name: "Éclat", Category: CategoryDeburring},
		{Code: "a", Name: "Ebavurage", Category: CategoryDeburring},
		{Code: "c", Name: "Finition", Category: CategoryDeburring},
	}

	assert.Equal(t, []string{"a", "b", "c"}, codes(OrderStepsIn(language.French, selected)))
}

func TestCostStep(t *testing.T) {
	step := ProcessStep{Code: "TURN", DefectRate: 0.03, DailyOutput: 50, SetupDays: 0.5, DailyFee: 800}

	line, err := CostStep(step, 100)

	require.NoError(t, err)
	assert.Equal(t, 103, line.Quantity)
	assert.InDelta(t, 2.06, line.Days, 1e-12)
	assert.InDelta(t, (2.06+0.5)*800/100, line.CostPerUnit, 1e-12)
}

func TestCostStep_RoundsQuantityUp(t *testing.T) {
	step := ProcessStep{Code: "MILL", DefectRate: 0.015, DailyOutput: 100, DailyFee: 100}

	line, err := CostStep(step, 10)

	require.NoError(t, err)
	assert.Equal(t, 11, line.Quantity)
}

func TestProcessCostPerUnit_DefectsAgainstOriginalLot(t *testing.T) {
	steps := []ProcessStep{
		{Code: "A", Category: CategoryTurning, DefectRate: 0.2, DailyOutput: 100, DailyFee: 100},
		{Code: "B", Category: CategoryMilling, DefectRate: 0.2, DailyOutput: 100, DailyFee: 100},
	}

	lines, err := CostSteps(steps, 100)
	require.NoError(t, err)

	// Both steps inflate the original 100, not the 120 coming out of step A.
	assert.Equal(t, 120, lines[0].Quantity)
	assert.Equal(t, 120, lines[1].Quantity)

	total, err := ProcessCostPerUnit(steps, 100)
	require.NoError(t, err)
	assert.InDelta(t, 2.4, total, 1e-12)
}

func TestProcessCostPerUnit_EmptySelectionIsZero(t *testing.T) {
	total, err := ProcessCostPerUnit(nil, 100)

	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestProcessCostPerUnit_ZeroLotRejected(t *testing.T) {
	steps := []ProcessStep{{Code: "A", DailyOutput: 10, DailyFee: 10}}

	total, err := ProcessCostPerUnit(steps, 0)

	assert.Zero(t, total)
	assert.True(t, errors.Is(err, ErrInvalidLotSize))

	_, err = ProcessCostPerUnit(nil, 0)
	assert.ErrorIs(t, err, ErrInvalidLotSize)
}

func TestProcessCostPerUnit_ZeroDailyOutputReported(t *testing.T) {
	steps := []ProcessStep{
		{Code: "OK", DailyOutput: 10, DailyFee: 10},
		{Code: "BAD", DailyOutput: 0, DailyFee: 10},
	}

	total, err := ProcessCostPerUnit(steps, 10)

	assert.Zero(t, total)
	require.ErrorIs(t, err, ErrZeroDailyOutput)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "processes[BAD].daily_output", fe.Field)
}

func TestCategoryPriority(t *testing.T) {
	assert.Equal(t, 0, CategoryTurning.Priority())
	assert.Equal(t, 13, CategoryPackaging.Priority())
	assert.Equal(t, 14, Category("painting").Priority())
	assert.False(t, Category("painting").Known())
	assert.True(t, CategoryHeatTreatment.Known())
}
