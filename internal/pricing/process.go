package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Category is the manufacturing stage a process step belongs to.
type Category string

const (
	CategoryTurning          Category = "turning"
	CategoryMilling          Category = "milling"
	CategoryDrilling         Category = "drilling"
	CategoryTapping          Category = "tapping"
	CategorySheetMetal       Category = "sheet_metal"
	CategoryWelding          Category = "welding"
	CategoryGrinding         Category = "grinding"
	CategorySpecialProcess   Category = "special_process"
	CategoryHeatTreatment    Category = "heat_treatment"
	CategorySurfaceTreatment Category = "surface_treatment"
	CategoryDeburring        Category = "deburring"
	CategoryInspection       Category = "inspection"
	CategoryAssembly         Category = "assembly"
	CategoryPackaging        Category = "packaging"
)

// Categories lists every known category in manufacturing order.
var Categories = []Category{
	CategoryTurning,
	CategoryMilling,
	CategoryDrilling,
	CategoryTapping,
	CategorySheetMetal,
	CategoryWelding,
	CategoryGrinding,
	CategorySpecialProcess,
	CategoryHeatTreatment,
	CategorySurfaceTreatment,
	CategoryDeburring,
	CategoryInspection,
	CategoryAssembly,
	CategoryPackaging,
}

var categoryPriority = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// Priority is the position of c in the manufacturing sequence. Unknown
// categories share the last slot.
func (c Category) Priority() int {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return len(Categories)
}

// Known reports whether c is one of Categories.
func (c Category) Known() bool {
	_, ok := categoryPriority[c]
	return ok
}

// ProcessStep is an editable copy of a process's catalog defaults.
type ProcessStep struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	DefectRate  float64  `json:"defect_rate"`
	DailyOutput float64  `json:"daily_output"`
	SetupDays   float64  `json:"setup_days"`
	DailyFee    float64  `json:"daily_fee"`
}

// DefaultLocale orders step names when no locale is configured.
var DefaultLocale = language.Chinese

// OrderSteps sorts steps by category priority, then by name in DefaultLocale.
// The input slice is not modified.
func OrderSteps(steps []ProcessStep) []ProcessStep {
	return OrderStepsIn(DefaultLocale, steps)
}

// OrderStepsIn is OrderSteps with an explicit collation locale.
func OrderStepsIn(locale language.Tag, steps []ProcessStep) []ProcessStep {
	ordered := append([]ProcessStep(nil), steps...)
	col := collate.New(locale)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].Category.Priority(), ordered[j].Category.Priority()
		if pi != pj {
			return pi < pj
		}
		return col.CompareString(ordered[i].Name, ordered[j].Name) < 0
	})
	return ordered
}

// StepCost is one line of the process cost breakdown.
type StepCost struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Quantity    int      `json:"quantity"`
	Days        float64  `json:"days"`
	CostPerUnit float64  `json:"cost_per_unit"`
}

func stepField(s ProcessStep, field string) string {
	return fmt.Sprintf("processes[%s].%s", s.Code, field)
}

// CostStep prices one step for a lot:
//
//	qty  = ceil(lot * (1 + defectRate))
//	days = qty / dailyOutput
//	cost = (days + setupDays) * dailyFee / lot
//
// Defect inflation is applied to the original lot, not to the yield left by
// upstream steps.
func CostStep(s ProcessStep, lotSize int) (StepCost, error) {
	line := StepCost{Code: s.Code, Name: s.Name, Category: s.Category}
	if lotSize <= 0 {
		return line, fieldErr("lot_size", ErrInvalidLotSize)
	}

	var errs []error
	if !(s.DailyOutput > 0) {
		errs = append(errs, fieldErr(stepField(s, "daily_output"), ErrZeroDailyOutput))
	}
	if s.DefectRate < 0 {
		errs = append(errs, fieldErr(stepField(s, "defect_rate"), ErrNegativeValue))
	}
	if s.SetupDays < 0 {
		errs = append(errs, fieldErr(stepField(s, "setup_days"), ErrNegativeValue))
	}
	if s.DailyFee < 0 {
		errs = append(errs, fieldErr(stepField(s, "daily_fee"), ErrNegativeValue))
	}
	if len(errs) > 0 {
		return line, errors.Join(errs...)
	}

	lot := float64(lotSize)
	qty := math.Ceil(lot * (1 + s.DefectRate))
	days := qty / s.DailyOutput
	cost := (days + s.SetupDays) * s.DailyFee / lot
	if !finite(qty) || qty > math.MaxInt32 || !finite(days) || !finite(cost) {
		return line, fieldErr(stepField(s, "cost_per_unit"), ErrNonFinite)
	}
	line.Quantity = int(qty)
	line.Days = days
	line.CostPerUnit = cost
	return line, nil
}

// CostSteps prices every step in the given order. Lines for invalid steps are
// returned with zero cost and their errors joined.
func CostSteps(ordered []ProcessStep, lotSize int) ([]StepCost, error) {
	lines := make([]StepCost, 0, len(ordered))
	if lotSize <= 0 {
		for _, s := range ordered {
			lines = append(lines, StepCost{Code: s.Code, Name: s.Name, Category: s.Category})
		}
		return lines, fieldErr("lot_size", ErrInvalidLotSize)
	}

	var errs []error
	for _, s := range ordered {
		line, err := CostStep(s, lotSize)
		if err != nil {
			errs = append(errs, err)
		}
		lines = append(lines, line)
	}
	return lines, errors.Join(errs...)
}

// ProcessCostPerUnit sums the per-unit cost of the ordered steps. An empty
// selection costs exactly 0. Any invalid step makes the total 0.
func ProcessCostPerUnit(ordered []ProcessStep, lotSize int) (float64, error) {
	lines, err := CostSteps(ordered, lotSize)
	if err != nil {
		return 0, err
	}
	return sumSteps(lines)
}

func sumSteps(lines []StepCost) (float64, error) {
	total := 0.0
	for _, l := range lines {
		total += l.CostPerUnit
	}
	if !finite(total) {
		return 0, fieldErr("process_cost", ErrNonFinite)
	}
	return total, nil
}
