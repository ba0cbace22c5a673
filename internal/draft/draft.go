// Package draft holds the editing session of a quote: a mutable QuoteInput
// resolved against the catalog, from which immutable snapshots are computed.
package draft

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/pricing"
)

// Suggestion is the upstream guess a draft starts from, typed in or read off a
// drawing. Both sources are treated the same.
type Suggestion struct {
	Geometry     pricing.PartGeometry
	MaterialCode string
	ProcessCodes []string
}

// Draft is one quote being edited. It is owned by a single session and is not
// safe for concurrent use; hand Input snapshots to other goroutines instead.
type Draft struct {
	lookup catalog.Lookup
	input  pricing.QuoteInput

	materialErr error
	processErrs map[string]error
	otherErrs   []error
}

// New builds a draft from defaults merged with the suggestion. Unknown codes
// are kept as issues; only lookup failures other than catalog.ErrNotFound are
// returned.
func New(ctx context.Context, lookup catalog.Lookup, d catalog.Defaults, s Suggestion) (*Draft, error) {
	dr := &Draft{
		lookup: lookup,
		input: pricing.QuoteInput{
			Geometry:   s.Geometry,
			Cutting:    d.Cutting,
			Overhead:   d.Overhead,
			Packaging:  d.Packaging,
			OtherCost:  d.OtherCost,
			LotSize:    d.LotSize,
			ProfitRate: pricing.Rate(d.ProfitRate),
		},
		processErrs: map[string]error{},
	}

	if s.MaterialCode != "" {
		if err := dr.SetMaterial(ctx, s.MaterialCode); err != nil {
			return nil, err
		}
	}
	for _, code := range s.ProcessCodes {
		if err := dr.AddProcess(ctx, code); err != nil {
			return nil, err
		}
	}
	return dr, nil
}

// SetMaterial re-looks-up the material whenever the code changes. An unknown
// code leaves an empty material so the stock optimizer reports incomplete input.
func (d *Draft) SetMaterial(ctx context.Context, code string) error {
	if code == d.input.Material.Code && d.materialErr == nil && code != "" {
		return nil
	}

	entry, err := d.lookup.GetMaterial(ctx, code)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		d.input.Material = pricing.Material{Code: code}
		d.materialErr = &pricing.FieldError{Field: "material.code", Err: pricing.ErrUnresolvedMaterial}
		return nil
	case err != nil:
		return fmt.Errorf("lookup material %q: %w", code, err)
	}

	d.input.Material = entry.Material()
	d.materialErr = nil
	return nil
}

// AddProcess selects a process. The catalog defaults are copied once; later
// catalog edits do not reach a step already in the draft. Selecting a code
// twice is a no-op.
func (d *Draft) AddProcess(ctx context.Context, code string) error {
	if d.hasProcess(code) {
		return nil
	}

	entry, err := d.lookup.GetProcessDefaults(ctx, code)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		d.processErrs[code] = &pricing.FieldError{
			Field: fmt.Sprintf("processes[%s]", code),
			Err:   pricing.ErrUnresolvedProcess,
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup process %q: %w", code, err)
	}

	delete(d.processErrs, code)
	d.input.Processes = append(d.input.Processes, entry.Step())
	return nil
}

// RemoveProcess deselects a process and reports whether it was selected.
func (d *Draft) RemoveProcess(code string) bool {
	delete(d.processErrs, code)
	for i, s := range d.input.Processes {
		if s.Code == code {
			d.input.Processes = append(d.input.Processes[:i:i], d.input.Processes[i+1:]...)
			return true
		}
	}
	return false
}

// EditProcess applies edit to the draft's copy of a selected step.
func (d *Draft) EditProcess(code string, edit func(*pricing.ProcessStep)) bool {
	for i := range d.input.Processes {
		if d.input.Processes[i].Code == code {
			edit(&d.input.Processes[i])
			d.input.Processes[i].Code = code
			return true
		}
	}
	return false
}

func (d *Draft) hasProcess(code string) bool {
	for _, s := range d.input.Processes {
		if s.Code == code {
			return true
		}
	}
	return false
}

// AdoptBarLength copies a recommended length into the configured cutting
// parameters. Nothing else moves the configured bar.
func (d *Draft) AdoptBarLength(mm float64) {
	d.input.Cutting.BarLengthMM = mm
}

func (d *Draft) SetGeometry(g pricing.PartGeometry)   { d.input.Geometry = g }
func (d *Draft) SetCutting(c pricing.CuttingParams)   { d.input.Cutting = c }
func (d *Draft) SetOverhead(o pricing.OverheadParams) { d.input.Overhead = o }
func (d *Draft) SetOtherCost(v float64)               { d.input.OtherCost = v }
func (d *Draft) SetLotSize(n int)                     { d.input.LotSize = n }

// SetProfitRate sets the margin. A nil rate clears it, which the engine
// reports as missing.
func (d *Draft) SetProfitRate(rate *float64) {
	if rate == nil {
		d.input.ProfitRate = nil
		return
	}
	d.input.ProfitRate = pricing.Rate(*rate)
}

// SetPackaging replaces the item for one kind.
func (d *Draft) SetPackaging(kind pricing.PackagingKind, item pricing.PackagingItem) error {
	return d.input.Packaging.Set(kind, item)
}

// SetPackagingQuantity keeps the unit price and replaces the quantity.
func (d *Draft) SetPackagingQuantity(kind pricing.PackagingKind, qty float64) error {
	item, _ := d.input.Packaging.Item(kind)
	item.Quantity = qty
	return d.input.Packaging.Set(kind, item)
}

// Input returns a snapshot detached from the draft.
func (d *Draft) Input() pricing.QuoteInput {
	return d.input.Clone()
}

// Issues lists unresolved lookups and rejected edits, material first and
// processes in selection order.
func (d *Draft) Issues() []pricing.Issue {
	return pricing.Issues(d.err())
}

func (d *Draft) err() error {
	var errs []error
	if d.materialErr != nil {
		errs = append(errs, d.materialErr)
	}
	for _, code := range d.pendingCodes() {
		errs = append(errs, d.processErrs[code])
	}
	errs = append(errs, d.otherErrs...)
	return errors.Join(errs...)
}

// pendingCodes returns unresolved process codes in a stable order.
func (d *Draft) pendingCodes() []string {
	codes := make([]string, 0, len(d.processErrs))
	for code := range d.processErrs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (d *Draft) reject(err error) {
	d.otherErrs = append(d.otherErrs, err)
}

// Compute runs e on a snapshot and prepends the draft's own issues.
func (d *Draft) Compute(e *pricing.Engine) pricing.Result {
	res := e.Compute(d.Input())
	if own := d.Issues(); len(own) > 0 {
		res.Issues = append(own, res.Issues...)
	}
	return res
}
