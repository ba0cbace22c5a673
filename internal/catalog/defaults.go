package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/o.quote/internal/pricing"
)

// Defaults seeds every new quote. Packaging carries unit prices only;
// quantities are per quote.
type Defaults struct {
	Cutting    pricing.CuttingParams  `json:"cutting"`
	Overhead   pricing.OverheadParams `json:"overhead"`
	Packaging  pricing.Packaging      `json:"packaging"`
	OtherCost  float64                `json:"other_cost"`
	ProfitRate float64                `json:"profit_rate"`
	LotSize    int                    `json:"lot_size"`
	Currency   string                 `json:"currency"`
}

// FactoryDefaults are the values written on first start.
func FactoryDefaults() Defaults {
	return Defaults{
		Cutting: pricing.CuttingParams{
			BarLengthMM:            2500,
			KerfMM:                 2.5,
			EndWasteMM:             160,
			MaterialDefectRate:     0.03,
			MaterialManagementRate: 0.03,
		},
		Overhead: pricing.OverheadParams{
			ManagementRate:   0.1,
			ShippingBase:     800,
			BoxesPerShipment: 20,
			UnitsPerBox:      200,
			LoadFactor:       0.85,
		},
		ProfitRate: 0.15,
		LotSize:    1000,
		Currency:   "CNY",
	}
}

// ValidateDefaults rejects values that would make every new quote invalid.
func ValidateDefaults(d Defaults) error {
	switch {
	case d.Cutting.BarLengthMM <= 0:
		return &ValidationError{Field: "cutting.bar_length_mm", Reason: "must be greater than 0"}
	case d.Cutting.KerfMM < 0:
		return &ValidationError{Field: "cutting.kerf_mm", Reason: "must be greater than or equal to 0"}
	case d.Cutting.EndWasteMM < 0:
		return &ValidationError{Field: "cutting.end_waste_mm", Reason: "must be greater than or equal to 0"}
	case d.Overhead.BoxesPerShipment <= 0:
		return &ValidationError{Field: "overhead.boxes_per_shipment", Reason: "must be greater than 0"}
	case d.Overhead.UnitsPerBox <= 0:
		return &ValidationError{Field: "overhead.units_per_box", Reason: "must be greater than 0"}
	case d.Overhead.LoadFactor <= 0:
		return &ValidationError{Field: "overhead.load_factor", Reason: "must be greater than 0"}
	case d.ProfitRate < 0:
		return &ValidationError{Field: "profit_rate", Reason: "must be greater than or equal to 0"}
	case d.LotSize <= 0:
		return &ValidationError{Field: "lot_size", Reason: "must be greater than 0"}
	case d.Currency == "":
		return &ValidationError{Field: "currency", Reason: "is required"}
	}
	return nil
}

// EnsureDefaults writes FactoryDefaults when the singleton row is missing.
// It reports whether a row was inserted.
func (s *Store) EnsureDefaults(ctx context.Context) (bool, error) {
	return ensureDefaults(ctx, s.db, FactoryDefaults())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureDefaults(ctx context.Context, db execer, d Defaults) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO quote_defaults (
			id,
			bar_length_mm,
			kerf_mm,
			end_waste_mm,
			material_defect_rate,
			material_management_rate,
			management_rate,
			shipping_base,
			boxes_per_shipment,
			units_per_box,
			load_factor,
			other_cost,
			profit_rate,
			lot_size,
			currency
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		d.Cutting.BarLengthMM,
		d.Cutting.KerfMM,
		d.Cutting.EndWasteMM,
		d.Cutting.MaterialDefectRate,
		d.Cutting.MaterialManagementRate,
		d.Overhead.ManagementRate,
		d.Overhead.ShippingBase,
		d.Overhead.BoxesPerShipment,
		d.Overhead.UnitsPerBox,
		d.Overhead.LoadFactor,
		d.OtherCost,
		d.ProfitRate,
		d.LotSize,
		d.Currency,
	)
	if err != nil {
		return false, fmt.Errorf("insert default quote_defaults: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert default quote_defaults: %w", err)
	}
	return n > 0, nil
}

// EnsureDefaultsTx is EnsureDefaults inside a caller-owned transaction.
func EnsureDefaultsTx(ctx context.Context, tx *sql.Tx) (bool, error) {
	return ensureDefaults(ctx, tx, FactoryDefaults())
}

// GetDefaults reads the singleton and the packaging unit prices.
func (s *Store) GetDefaults(ctx context.Context) (Defaults, error) {
	if _, err := s.EnsureDefaults(ctx); err != nil {
		return Defaults{}, err
	}

	var d Defaults
	err := s.db.QueryRowContext(ctx, `
		SELECT
			bar_length_mm, kerf_mm, end_waste_mm, material_defect_rate, material_management_rate,
			management_rate, shipping_base, boxes_per_shipment, units_per_box, load_factor,
			other_cost, profit_rate, lot_size, currency
		FROM quote_defaults
		WHERE id = 1
	`).Scan(
		&d.Cutting.BarLengthMM,
		&d.Cutting.KerfMM,
		&d.Cutting.EndWasteMM,
		&d.Cutting.MaterialDefectRate,
		&d.Cutting.MaterialManagementRate,
		&d.Overhead.ManagementRate,
		&d.Overhead.ShippingBase,
		&d.Overhead.BoxesPerShipment,
		&d.Overhead.UnitsPerBox,
		&d.Overhead.LoadFactor,
		&d.OtherCost,
		&d.ProfitRate,
		&d.LotSize,
		&d.Currency,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Defaults{}, fmt.Errorf("quote_defaults singleton not found")
		}
		return Defaults{}, fmt.Errorf("query quote_defaults: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, unit_price FROM packaging_rates`)
	if err != nil {
		return Defaults{}, fmt.Errorf("query packaging_rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var price float64
		if err := rows.Scan(&kind, &price); err != nil {
			return Defaults{}, fmt.Errorf("scan packaging rate: %w", err)
		}
		// The table CHECK keeps kinds inside the closed set.
		_ = d.Packaging.Set(pricing.PackagingKind(kind), pricing.PackagingItem{UnitPrice: price})
	}
	if err := rows.Err(); err != nil {
		return Defaults{}, fmt.Errorf("iterate packaging rates: %w", err)
	}

	return d, nil
}

// UpdateDefaults replaces the singleton and every packaging unit price.
func (s *Store) UpdateDefaults(ctx context.Context, d Defaults) error {
	if err := ValidateDefaults(d); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin defaults transaction: %w", err)
	}

	if _, err := ensureDefaults(ctx, tx, FactoryDefaults()); err != nil {
		_ = tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE quote_defaults
		SET
			bar_length_mm = ?,
			kerf_mm = ?,
			end_waste_mm = ?,
			material_defect_rate = ?,
			material_management_rate = ?,
			management_rate = ?,
			shipping_base = ?,
			boxes_per_shipment = ?,
			units_per_box = ?,
			load_factor = ?,
			other_cost = ?,
			profit_rate = ?,
			lot_size = ?,
			currency = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`,
		d.Cutting.BarLengthMM,
		d.Cutting.KerfMM,
		d.Cutting.EndWasteMM,
		d.Cutting.MaterialDefectRate,
		d.Cutting.MaterialManagementRate,
		d.Overhead.ManagementRate,
		d.Overhead.ShippingBase,
		d.Overhead.BoxesPerShipment,
		d.Overhead.UnitsPerBox,
		d.Overhead.LoadFactor,
		d.OtherCost,
		d.ProfitRate,
		d.LotSize,
		d.Currency,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update quote_defaults: %w", err)
	}

	for _, kind := range pricing.PackagingKinds {
		item, _ := d.Packaging.Item(kind)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO packaging_rates (kind, unit_price)
			VALUES (?, ?)
			ON CONFLICT(kind) DO UPDATE SET
				unit_price = excluded.unit_price,
				updated_at = CURRENT_TIMESTAMP
		`, string(kind), item.UnitPrice); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert packaging rate %s: %w", kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit defaults transaction: %w", err)
	}
	return nil
}
