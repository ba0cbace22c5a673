package draft

import (
	"context"
	"sort"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/pricing"
)

// StepOverride replaces individual catalog defaults of a selected step.
type StepOverride struct {
	DefectRate  *float64 `json:"defect_rate,omitempty"`
	DailyOutput *float64 `json:"daily_output,omitempty"`
	SetupDays   *float64 `json:"setup_days,omitempty"`
	DailyFee    *float64 `json:"daily_fee,omitempty"`
}

func (o StepOverride) apply(s *pricing.ProcessStep) {
	overrideFloat(&s.DefectRate, o.DefectRate)
	overrideFloat(&s.DailyOutput, o.DailyOutput)
	overrideFloat(&s.SetupDays, o.SetupDays)
	overrideFloat(&s.DailyFee, o.DailyFee)
}

// CuttingOverride replaces individual cutting defaults.
type CuttingOverride struct {
	BarLengthMM            *float64 `json:"bar_length_mm,omitempty"`
	KerfMM                 *float64 `json:"kerf_mm,omitempty"`
	EndWasteMM             *float64 `json:"end_waste_mm,omitempty"`
	MaterialDefectRate     *float64 `json:"material_defect_rate,omitempty"`
	MaterialManagementRate *float64 `json:"material_management_rate,omitempty"`
}

func (o CuttingOverride) apply(c *pricing.CuttingParams) {
	overrideFloat(&c.BarLengthMM, o.BarLengthMM)
	overrideFloat(&c.KerfMM, o.KerfMM)
	overrideFloat(&c.EndWasteMM, o.EndWasteMM)
	overrideFloat(&c.MaterialDefectRate, o.MaterialDefectRate)
	overrideFloat(&c.MaterialManagementRate, o.MaterialManagementRate)
}

// OverheadOverride replaces individual overhead defaults.
type OverheadOverride struct {
	ManagementRate   *float64 `json:"management_rate,omitempty"`
	ShippingBase     *float64 `json:"shipping_base,omitempty"`
	BoxesPerShipment *float64 `json:"boxes_per_shipment,omitempty"`
	UnitsPerBox      *float64 `json:"units_per_box,omitempty"`
	LoadFactor       *float64 `json:"load_factor,omitempty"`
}

func (o OverheadOverride) apply(p *pricing.OverheadParams) {
	overrideFloat(&p.ManagementRate, o.ManagementRate)
	overrideFloat(&p.ShippingBase, o.ShippingBase)
	overrideFloat(&p.BoxesPerShipment, o.BoxesPerShipment)
	overrideFloat(&p.UnitsPerBox, o.UnitsPerBox)
	overrideFloat(&p.LoadFactor, o.LoadFactor)
}

func overrideFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Request is a draft expressed as catalog codes plus overrides. Absent fields,
// including single fields inside cutting and overhead, keep the stored defaults.
type Request struct {
	Geometry      pricing.PartGeometry    `json:"geometry"`
	MaterialCode  string                  `json:"material_code"`
	ProcessCodes  []string                `json:"process_codes"`
	StepOverrides map[string]StepOverride `json:"step_overrides,omitempty"`
	Cutting       CuttingOverride         `json:"cutting"`
	BarLengthMM   *float64                `json:"bar_length_mm,omitempty"`
	Overhead      OverheadOverride        `json:"overhead"`
	Packaging     map[string]float64      `json:"packaging_quantities,omitempty"`
	OtherCost     *float64                `json:"other_cost,omitempty"`
	LotSize       *int                    `json:"lot_size,omitempty"`
	ProfitRate    *float64                `json:"profit_rate,omitempty"`
}

// Resolve builds a draft for req. Overrides are applied after the catalog
// lookups, in the order a user would edit them.
func Resolve(ctx context.Context, lookup catalog.Lookup, d catalog.Defaults, req Request) (*Draft, error) {
	dr, err := New(ctx, lookup, d, Suggestion{
		Geometry:     req.Geometry,
		MaterialCode: req.MaterialCode,
		ProcessCodes: req.ProcessCodes,
	})
	if err != nil {
		return nil, err
	}

	for code, o := range req.StepOverrides {
		dr.EditProcess(code, o.apply)
	}
	cutting := dr.input.Cutting
	req.Cutting.apply(&cutting)
	dr.SetCutting(cutting)
	if req.BarLengthMM != nil {
		dr.AdoptBarLength(*req.BarLengthMM)
	}
	overhead := dr.input.Overhead
	req.Overhead.apply(&overhead)
	dr.SetOverhead(overhead)
	for _, kind := range sortedKeys(req.Packaging) {
		if err := dr.SetPackagingQuantity(pricing.PackagingKind(kind), req.Packaging[kind]); err != nil {
			dr.reject(err)
		}
	}
	if req.OtherCost != nil {
		dr.SetOtherCost(*req.OtherCost)
	}
	if req.LotSize != nil {
		dr.SetLotSize(*req.LotSize)
	}
	if req.ProfitRate != nil {
		dr.SetProfitRate(req.ProfitRate)
	}
	return dr, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
