package pricing

// Material is the resolved catalog entry for the raw stock of a part.
type Material struct {
	Code           string  `json:"code"`
	DensityGPerCm3 float64 `json:"density_g_per_cm3"`
	PricePerKg     float64 `json:"price_per_kg"`
}

// PartGeometry describes the finished part. Stock is assumed cylindrical.
type PartGeometry struct {
	OuterDiameterMM float64 `json:"outer_diameter_mm"`
	LengthMM        float64 `json:"length_mm"`
}

// CuttingParams holds the raw-bar cutting setup. BarLengthMM is the configured
// stock length used for the real material cost; it only changes when the user
// adopts a recommendation.
type CuttingParams struct {
	BarLengthMM            float64 `json:"bar_length_mm"`
	KerfMM                 float64 `json:"kerf_mm"`
	EndWasteMM             float64 `json:"end_waste_mm"`
	MaterialDefectRate     float64 `json:"material_defect_rate"`
	MaterialManagementRate float64 `json:"material_management_rate"`
}

// OverheadParams holds the general-management and logistics inputs.
type OverheadParams struct {
	ManagementRate   float64 `json:"management_rate"`
	ShippingBase     float64 `json:"shipping_base"`
	BoxesPerShipment float64 `json:"boxes_per_shipment"`
	UnitsPerBox      float64 `json:"units_per_box"`
	LoadFactor       float64 `json:"load_factor"`
}

// QuoteInput is the snapshot a quote is computed from. Compute never mutates it.
type QuoteInput struct {
	Geometry   PartGeometry   `json:"geometry"`
	Material   Material       `json:"material"`
	Cutting    CuttingParams  `json:"cutting"`
	Processes  []ProcessStep  `json:"processes"`
	Overhead   OverheadParams `json:"overhead"`
	Packaging  Packaging      `json:"packaging"`
	OtherCost  float64        `json:"other_cost"`
	LotSize    int            `json:"lot_size"`
	ProfitRate *float64       `json:"profit_rate"`
}

// Clone returns a deep copy of the input so callers can hand out snapshots.
func (in QuoteInput) Clone() QuoteInput {
	out := in
	if in.Processes != nil {
		out.Processes = append([]ProcessStep(nil), in.Processes...)
	}
	if in.ProfitRate != nil {
		rate := *in.ProfitRate
		out.ProfitRate = &rate
	}
	return out
}

// Rate returns a pointer to v, for filling optional rate fields.
func Rate(v float64) *float64 {
	return &v
}
