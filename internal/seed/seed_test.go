package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/db"
	"github.com/Simplici0/o.quote/internal/migrations"
	"github.com/Simplici0/o.quote/internal/pricing"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	wantFirst := len(Materials()) + len(Processes()) + 1 + len(pricing.PackagingKinds)
	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database, Config{})
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != wantFirst || stats.Skipped != 0 {
				t.Fatalf("expected %d inserts and 0 skipped in first run, got %+v", wantFirst, stats)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Skipped != wantFirst {
			t.Fatalf("expected 0 inserts and %d skipped in iteration %d, got %+v", wantFirst, i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM materials WHERE code = ?`, "SUS303", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM processes`, nil, len(Processes()))
	assertCount(t, database, `SELECT COUNT(*) FROM quote_defaults WHERE id = 1`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM packaging_rates WHERE kind IN (?, ?)`, []any{"bag", "pallet"}, 2)
}

func TestRunKeepsEditedEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	database, err := db.Open(ctx, db.Memory)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(ctx, database, Config{}); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	store := catalog.NewStore(database)
	edited := Materials()[0]
	edited.PricePerKg = 9.9
	if err := store.UpsertMaterial(ctx, edited); err != nil {
		t.Fatalf("edit material: %v", err)
	}

	if _, err := Run(ctx, database, Config{}); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	got, err := store.GetMaterial(ctx, edited.Code)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	if got.PricePerKg != 9.9 {
		t.Fatalf("price = %v, want edited 9.9", got.PricePerKg)
	}
}

func TestBuiltInCatalogIsValid(t *testing.T) {
	for _, m := range Materials() {
		if err := catalog.ValidateMaterial(m); err != nil {
			t.Fatalf("material %s: %v", m.Code, err)
		}
	}
	seen := map[pricing.Category]bool{}
	for _, p := range Processes() {
		if err := catalog.ValidateProcess(p); err != nil {
			t.Fatalf("process %s: %v", p.Code, err)
		}
		seen[p.Category] = true
	}
	for _, c := range pricing.Categories {
		if !seen[c] {
			t.Fatalf("no built-in process for category %s", c)
		}
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
