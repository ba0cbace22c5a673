// Package catalog resolves material and process codes to the plain values the
// pricing engine consumes.
package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/Simplici0/o.quote/internal/pricing"
)

// ErrNotFound is returned when a code is unknown or inactive.
var ErrNotFound = errors.New("catalog: not found")

// MaterialEntry is a material row.
type MaterialEntry struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	DensityGPerCm3 float64 `json:"density_g_per_cm3"`
	PricePerKg     float64 `json:"price_per_kg"`
	Notes          string  `json:"notes,omitempty"`
	Active         bool    `json:"active"`
}

// Material converts the entry to the engine's value type.
func (m MaterialEntry) Material() pricing.Material {
	return pricing.Material{
		Code:           m.Code,
		DensityGPerCm3: m.DensityGPerCm3,
		PricePerKg:     m.PricePerKg,
	}
}

// ProcessEntry holds the defaults a process step is seeded from.
type ProcessEntry struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Category    pricing.Category `json:"category"`
	DefectRate  float64          `json:"defect_rate"`
	DailyOutput float64          `json:"daily_output"`
	SetupDays   float64          `json:"setup_days"`
	DailyFee    float64          `json:"daily_fee"`
	Active      bool             `json:"active"`
}

// Step returns an editable copy of the defaults.
func (p ProcessEntry) Step() pricing.ProcessStep {
	return pricing.ProcessStep{
		Code:        p.Code,
		Name:        p.Name,
		Category:    p.Category,
		DefectRate:  p.DefectRate,
		DailyOutput: p.DailyOutput,
		SetupDays:   p.SetupDays,
		DailyFee:    p.DailyFee,
	}
}

// MaterialLookup resolves a material code.
type MaterialLookup interface {
	GetMaterial(ctx context.Context, code string) (MaterialEntry, error)
}

// ProcessLookup resolves a process code.
type ProcessLookup interface {
	GetProcessDefaults(ctx context.Context, code string) (ProcessEntry, error)
}

// Lookup is both lookups.
type Lookup interface {
	MaterialLookup
	ProcessLookup
}

// Static is a read-only in-memory catalog.
type Static struct {
	materials map[string]MaterialEntry
	processes map[string]ProcessEntry
}

// NewStatic indexes the entries by code. Later duplicates win.
func NewStatic(materials []MaterialEntry, processes []ProcessEntry) *Static {
	s := &Static{
		materials: make(map[string]MaterialEntry, len(materials)),
		processes: make(map[string]ProcessEntry, len(processes)),
	}
	for _, m := range materials {
		s.materials[m.Code] = m
	}
	for _, p := range processes {
		s.processes[p.Code] = p
	}
	return s
}

func (s *Static) GetMaterial(_ context.Context, code string) (MaterialEntry, error) {
	m, ok := s.materials[code]
	if !ok || !m.Active {
		return MaterialEntry{}, ErrNotFound
	}
	return m, nil
}

func (s *Static) GetProcessDefaults(_ context.Context, code string) (ProcessEntry, error) {
	p, ok := s.processes[code]
	if !ok || !p.Active {
		return ProcessEntry{}, ErrNotFound
	}
	return p, nil
}

// Processes lists active processes in manufacturing order.
func (s *Static) Processes() []ProcessEntry {
	out := make([]ProcessEntry, 0, len(s.processes))
	for _, p := range s.processes {
		if p.Active {
			out = append(out, p)
		}
	}
	sortProcesses(out)
	return out
}

func sortProcesses(entries []ProcessEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := entries[i].Category.Priority(), entries[j].Category.Priority()
		if pi != pj {
			return pi < pj
		}
		return entries[i].Code < entries[j].Code
	})
}
