package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/pricing"
)

// Config contains the catalog written by the startup seed. Zero slices fall
// back to the built-in catalog.
type Config struct {
	Materials []catalog.MaterialEntry
	Processes []catalog.ProcessEntry
}

// Stats contains seed operation counters. Skipped counts rows that already
// existed and were left as they are.
type Stats struct {
	Inserts int
	Skipped int
}

// Materials is the built-in material catalog.
func Materials() []catalog.MaterialEntry {
	return []catalog.MaterialEntry{
		{Code: "SUS303", Name: "不锈钢 303", DensityGPerCm3: 7.93, PricePerKg: 5.3, Active: true},
		{Code: "SUS304", Name: "不锈钢 304", DensityGPerCm3: 7.93, PricePerKg: 16.5, Active: true},
		{Code: "AL6061", Name: "铝合金 6061", DensityGPerCm3: 2.7, PricePerKg: 22, Active: true},
		{Code: "C3604", Name: "黄铜 C3604", DensityGPerCm3: 8.5, PricePerKg: 52, Active: true},
		{Code: "S45C", Name: "45# 钢", DensityGPerCm3: 7.85, PricePerKg: 4.8, Active: true},
	}
}

// Processes is the built-in process catalog, one or more per category.
func Processes() []catalog.ProcessEntry {
	return []catalog.ProcessEntry{
		{Code: "CNC-TURN", Name: "数控车", Category: pricing.CategoryTurning, DefectRate: 0.02, DailyOutput: 400, SetupDays: 0.5, DailyFee: 900, Active: true},
		{Code: "AUTO-TURN", Name: "走心机", Category: pricing.CategoryTurning, DefectRate: 0.01, DailyOutput: 1200, SetupDays: 1, DailyFee: 1200, Active: true},
		{Code: "CNC-MILL", Name: "加工中心", Category: pricing.CategoryMilling, DefectRate: 0.02, DailyOutput: 300, SetupDays: 0.5, DailyFee: 1100, Active: true},
		{Code: "DRILL", Name: "钻孔", Category: pricing.CategoryDrilling, DefectRate: 0.01, DailyOutput: 1500, SetupDays: 0.2, DailyFee: 500, Active: true},
		{Code: "TAP", Name: "攻牙", Category: pricing.CategoryTapping, DefectRate: 0.01, DailyOutput: 1500, SetupDays: 0.2, DailyFee: 500, Active: true},
		{Code: "SHEET", Name: "钣金", Category: pricing.CategorySheetMetal, DefectRate: 0.02, DailyOutput: 800, SetupDays: 0.5, DailyFee: 700, Active: true},
		{Code: "WELD", Name: "焊接", Category: pricing.CategoryWelding, DefectRate: 0.02, DailyOutput: 600, SetupDays: 0.3, DailyFee: 650, Active: true},
		{Code: "GRIND", Name: "无心磨", Category: pricing.CategoryGrinding, DefectRate: 0.01, DailyOutput: 2000, SetupDays: 0.5, DailyFee: 800, Active: true},
		{Code: "SPECIAL", Name: "特殊工艺", Category: pricing.CategorySpecialProcess, DefectRate: 0.03, DailyOutput: 500, SetupDays: 1, DailyFee: 1000, Active: true},
		{Code: "HT", Name: "热处理", Category: pricing.CategoryHeatTreatment, DefectRate: 0.01, DailyOutput: 5000, SetupDays: 1, DailyFee: 1500, Active: true},
		{Code: "PASSIVATE", Name: "钝化", Category: pricing.CategorySurfaceTreatment, DefectRate: 0.01, DailyOutput: 5000, SetupDays: 0.5, DailyFee: 900, Active: true},
		{Code: "ANODIZE", Name: "阳极氧化", Category: pricing.CategorySurfaceTreatment, DefectRate: 0.02, DailyOutput: 3000, SetupDays: 0.5, DailyFee: 1000, Active: true},
		{Code: "DEBURR", Name: "去毛刺", Category: pricing.CategoryDeburring, DailyOutput: 3000, DailyFee: 300, Active: true},
		{Code: "QC", Name: "全检", Category: pricing.CategoryInspection, DailyOutput: 2000, DailyFee: 400, Active: true},
		{Code: "ASSY", Name: "组装", Category: pricing.CategoryAssembly, DefectRate: 0.005, DailyOutput: 1000, SetupDays: 0.2, DailyFee: 450, Active: true},
		{Code: "PACK", Name: "包装", Category: pricing.CategoryPackaging, DailyOutput: 5000, DailyFee: 300, Active: true},
	}
}

// Run executes the startup seed in an idempotent way. Existing rows are left
// untouched so catalog edits survive restarts.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	if cfg.Materials == nil {
		cfg.Materials = Materials()
	}
	if cfg.Processes == nil {
		cfg.Processes = Processes()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, m := range cfg.Materials {
		if err := ensureMaterial(ctx, tx, m, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, p := range cfg.Processes {
		if err := ensureProcess(ctx, tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	if err := ensureDefaults(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensurePackaging(ctx, tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureMaterial(ctx context.Context, tx *sql.Tx, m catalog.MaterialEntry, stats *Stats) error {
	if err := catalog.ValidateMaterial(m); err != nil {
		return fmt.Errorf("seed material %q: %w", m.Code, err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM materials WHERE code = ? LIMIT 1)`, m.Code).Scan(&exists); err != nil {
		return fmt.Errorf("check material %q existence: %w", m.Code, err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO materials (code, name, density_g_cm3, price_per_kg, notes, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.Code, m.Name, m.DensityGPerCm3, m.PricePerKg, m.Notes, m.Active); err != nil {
		return fmt.Errorf("insert material %q: %w", m.Code, err)
	}
	stats.Inserts++
	return nil
}

func ensureProcess(ctx context.Context, tx *sql.Tx, p catalog.ProcessEntry, stats *Stats) error {
	if err := catalog.ValidateProcess(p); err != nil {
		return fmt.Errorf("seed process %q: %w", p.Code, err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM processes WHERE code = ? LIMIT 1)`, p.Code).Scan(&exists); err != nil {
		return fmt.Errorf("check process %q existence: %w", p.Code, err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processes (code, name, category, defect_rate, daily_output, setup_days, daily_fee, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Code, p.Name, string(p.Category), p.DefectRate, p.DailyOutput, p.SetupDays, p.DailyFee, p.Active); err != nil {
		return fmt.Errorf("insert process %q: %w", p.Code, err)
	}
	stats.Inserts++
	return nil
}

func ensureDefaults(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	inserted, err := catalog.EnsureDefaultsTx(ctx, tx)
	if err != nil {
		return err
	}
	if inserted {
		stats.Inserts++
	} else {
		stats.Skipped++
	}
	return nil
}

func ensurePackaging(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for _, kind := range pricing.PackagingKinds {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO packaging_rates (kind, unit_price, notes)
			VALUES (?, 0, '')
			ON CONFLICT(kind) DO NOTHING
		`, string(kind))
		if err != nil {
			return fmt.Errorf("insert packaging rate %s: %w", kind, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert packaging rate %s: %w", kind, err)
		}
		stats.Inserts += int(n)
		stats.Skipped += 1 - int(n)
	}
	return nil
}
