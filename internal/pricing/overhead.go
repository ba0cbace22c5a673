package pricing

import (
	"errors"
	"fmt"
)

// Overhead is the per-unit non-production cost split by source.
type Overhead struct {
	GeneralManagement float64 `json:"general_management"`
	Shipping          float64 `json:"shipping"`
}

// Total is GeneralManagement + Shipping.
func (o Overhead) Total() float64 {
	return o.GeneralManagement + o.Shipping
}

// AllocateOverhead derives general management from the process cost and a
// per-unit shipping cost from packing density:
//
//	shipping = shippingBase / boxesPerShipment / unitsPerBox / loadFactor
//
// All three divisors must be positive and shippingBase must not be negative.
// A share that overflows is zeroed and reported.
func AllocateOverhead(processCostPerUnit float64, p OverheadParams) (Overhead, error) {
	var errs []error
	if p.ShippingBase < 0 {
		errs = append(errs, fieldErr("overhead.shipping_base", ErrNegativeValue))
	}
	if !(p.BoxesPerShipment > 0) {
		errs = append(errs, fieldErr("overhead.boxes_per_shipment", ErrInvalidDivisor))
	}
	if !(p.UnitsPerBox > 0) {
		errs = append(errs, fieldErr("overhead.units_per_box", ErrInvalidDivisor))
	}
	if !(p.LoadFactor > 0) {
		errs = append(errs, fieldErr("overhead.load_factor", ErrInvalidDivisor))
	}
	if p.ManagementRate < 0 {
		errs = append(errs, fieldErr("overhead.management_rate", ErrNegativeValue))
	}
	if len(errs) > 0 {
		return Overhead{}, errors.Join(errs...)
	}

	o := Overhead{
		GeneralManagement: processCostPerUnit * p.ManagementRate,
		Shipping:          p.ShippingBase / p.BoxesPerShipment / p.UnitsPerBox / p.LoadFactor,
	}
	if !finite(o.GeneralManagement) {
		o.GeneralManagement = 0
		errs = append(errs, fieldErr("general_management", ErrNonFinite))
	}
	if !finite(o.Shipping) {
		o.Shipping = 0
		errs = append(errs, fieldErr("shipping", ErrNonFinite))
	}
	return o, errors.Join(errs...)
}

// OverheadPerUnit is AllocateOverhead(...).Total(). Any error makes it 0.
func OverheadPerUnit(processCostPerUnit float64, p OverheadParams) (float64, error) {
	o, err := AllocateOverhead(processCostPerUnit, p)
	if err != nil {
		return 0, err
	}
	return o.Total(), nil
}

// PackagingKind is one of the fixed packaging materials.
type PackagingKind string

const (
	PackagingBag    PackagingKind = "bag"
	PackagingFoam   PackagingKind = "foam"
	PackagingCarton PackagingKind = "carton"
	PackagingBox    PackagingKind = "box"
	PackagingPallet PackagingKind = "pallet"
)

// PackagingKinds is the closed set of kinds, in summation order.
var PackagingKinds = []PackagingKind{
	PackagingBag,
	PackagingFoam,
	PackagingCarton,
	PackagingBox,
	PackagingPallet,
}

// PackagingItem is the unit price and quantity of one packaging material for
// the whole lot.
type PackagingItem struct {
	UnitPrice float64 `json:"unit_price"`
	Quantity  float64 `json:"quantity"`
}

// Cost is UnitPrice * Quantity.
func (i PackagingItem) Cost() float64 {
	return i.UnitPrice * i.Quantity
}

// Packaging holds one item per kind. The zero value costs nothing.
type Packaging struct {
	Bag    PackagingItem `json:"bag"`
	Foam   PackagingItem `json:"foam"`
	Carton PackagingItem `json:"carton"`
	Box    PackagingItem `json:"box"`
	Pallet PackagingItem `json:"pallet"`
}

func (p *Packaging) slot(kind PackagingKind) *PackagingItem {
	switch kind {
	case PackagingBag:
		return &p.Bag
	case PackagingFoam:
		return &p.Foam
	case PackagingCarton:
		return &p.Carton
	case PackagingBox:
		return &p.Box
	case PackagingPallet:
		return &p.Pallet
	}
	return nil
}

// Item returns the item stored for kind.
func (p Packaging) Item(kind PackagingKind) (PackagingItem, bool) {
	s := p.slot(kind)
	if s == nil {
		return PackagingItem{}, false
	}
	return *s, true
}

// Set replaces the item for kind.
func (p *Packaging) Set(kind PackagingKind, item PackagingItem) error {
	s := p.slot(kind)
	if s == nil {
		return fieldErr(fmt.Sprintf("packaging.%s", kind), ErrUnknownPackaging)
	}
	*s = item
	return nil
}

// Items returns the items in PackagingKinds order.
func (p Packaging) Items() []PackagingItem {
	items := make([]PackagingItem, 0, len(PackagingKinds))
	for _, k := range PackagingKinds {
		item, _ := p.Item(k)
		items = append(items, item)
	}
	return items
}

// PackagingPerUnit is sum(unitPrice * quantity) / lotSize.
func PackagingPerUnit(items []PackagingItem, lotSize int) (float64, error) {
	if lotSize <= 0 {
		return 0, fieldErr("lot_size", ErrInvalidLotSize)
	}
	total := 0.0
	for _, item := range items {
		total += item.Cost()
	}
	return total / float64(lotSize), nil
}
