package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store is the SQLite-backed catalog.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetMaterial(ctx context.Context, code string) (MaterialEntry, error) {
	var m MaterialEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, density_g_cm3, price_per_kg, COALESCE(notes, ''), active
		FROM materials
		WHERE code = ? AND active
	`, code).Scan(&m.Code, &m.Name, &m.DensityGPerCm3, &m.PricePerKg, &m.Notes, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return MaterialEntry{}, ErrNotFound
	}
	if err != nil {
		return MaterialEntry{}, fmt.Errorf("query material %q: %w", code, err)
	}
	return m, nil
}

// ListMaterials returns every material, inactive ones included, by code.
func (s *Store) ListMaterials(ctx context.Context) ([]MaterialEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, density_g_cm3, price_per_kg, COALESCE(notes, ''), active
		FROM materials
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	materials := make([]MaterialEntry, 0)
	for rows.Next() {
		var m MaterialEntry
		if err := rows.Scan(&m.Code, &m.Name, &m.DensityGPerCm3, &m.PricePerKg, &m.Notes, &m.Active); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	return materials, nil
}

// UpsertMaterial inserts or updates a material by code.
func (s *Store) UpsertMaterial(ctx context.Context, m MaterialEntry) error {
	if err := ValidateMaterial(m); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (code, name, density_g_cm3, price_per_kg, notes, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			density_g_cm3 = excluded.density_g_cm3,
			price_per_kg = excluded.price_per_kg,
			notes = excluded.notes,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`, m.Code, m.Name, m.DensityGPerCm3, m.PricePerKg, m.Notes, m.Active)
	if err != nil {
		return fmt.Errorf("upsert material %q: %w", m.Code, err)
	}
	return nil
}

func (s *Store) GetProcessDefaults(ctx context.Context, code string) (ProcessEntry, error) {
	var p ProcessEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, category, defect_rate, daily_output, setup_days, daily_fee, active
		FROM processes
		WHERE code = ? AND active
	`, code).Scan(&p.Code, &p.Name, &p.Category, &p.DefectRate, &p.DailyOutput, &p.SetupDays, &p.DailyFee, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return ProcessEntry{}, ErrNotFound
	}
	if err != nil {
		return ProcessEntry{}, fmt.Errorf("query process %q: %w", code, err)
	}
	return p, nil
}

// ListProcesses returns every process in manufacturing order.
func (s *Store) ListProcesses(ctx context.Context) ([]ProcessEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, category, defect_rate, daily_output, setup_days, daily_fee, active
		FROM processes
	`)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer rows.Close()

	processes := make([]ProcessEntry, 0)
	for rows.Next() {
		var p ProcessEntry
		if err := rows.Scan(&p.Code, &p.Name, &p.Category, &p.DefectRate, &p.DailyOutput, &p.SetupDays, &p.DailyFee, &p.Active); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		processes = append(processes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processes: %w", err)
	}

	sortProcesses(processes)
	return processes, nil
}

// UpsertProcess inserts or updates a process by code. Steps already added to
// a quote keep their own copy and are not affected.
func (s *Store) UpsertProcess(ctx context.Context, p ProcessEntry) error {
	if err := ValidateProcess(p); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processes (code, name, category, defect_rate, daily_output, setup_days, daily_fee, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			defect_rate = excluded.defect_rate,
			daily_output = excluded.daily_output,
			setup_days = excluded.setup_days,
			daily_fee = excluded.daily_fee,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`, p.Code, p.Name, string(p.Category), p.DefectRate, p.DailyOutput, p.SetupDays, p.DailyFee, p.Active)
	if err != nil {
		return fmt.Errorf("upsert process %q: %w", p.Code, err)
	}
	return nil
}

// ValidationError reports an invalid catalog entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ValidateMaterial checks the fields the optimizer requires.
func ValidateMaterial(m MaterialEntry) error {
	switch {
	case strings.TrimSpace(m.Code) == "":
		return &ValidationError{Field: "code", Reason: "is required"}
	case strings.TrimSpace(m.Name) == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case !(m.DensityGPerCm3 > 0):
		return &ValidationError{Field: "density_g_per_cm3", Reason: "must be greater than 0"}
	case m.PricePerKg < 0:
		return &ValidationError{Field: "price_per_kg", Reason: "must be greater than or equal to 0"}
	}
	return nil
}

// ValidateProcess checks a process entry. Unknown categories are accepted and
// sort last.
func ValidateProcess(p ProcessEntry) error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return &ValidationError{Field: "code", Reason: "is required"}
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case strings.TrimSpace(string(p.Category)) == "":
		return &ValidationError{Field: "category", Reason: "is required"}
	case !(p.DailyOutput > 0):
		return &ValidationError{Field: "daily_output", Reason: "must be greater than 0"}
	case p.DefectRate < 0:
		return &ValidationError{Field: "defect_rate", Reason: "must be greater than or equal to 0"}
	case p.SetupDays < 0:
		return &ValidationError{Field: "setup_days", Reason: "must be greater than or equal to 0"}
	case p.DailyFee < 0:
		return &ValidationError{Field: "daily_fee", Reason: "must be greater than or equal to 0"}
	}
	return nil
}

var _ Lookup = (*Store)(nil)
var _ Lookup = (*Static)(nil)
