package quotes

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/o.quote/internal/db"
	"github.com/Simplici0/o.quote/internal/migrations"
	"github.com/Simplici0/o.quote/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, db.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(database))

	s := NewStore(database, nil)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func sampleInput() pricing.QuoteInput {
	in := pricing.QuoteInput{
		Geometry: pricing.PartGeometry{OuterDiameterMM: 10, LengthMM: 100},
		Material: pricing.Material{Code: "SUS303", DensityGPerCm3: 7.93, PricePerKg: 5.3},
		Cutting: pricing.CuttingParams{
			BarLengthMM:            2500,
			KerfMM:                 2.5,
			EndWasteMM:             160,
			MaterialDefectRate:     0.03,
			MaterialManagementRate: 0.03,
		},
		Processes: []pricing.ProcessStep{
			{Code: "QC", Name: "全检", Category: pricing.CategoryInspection, DailyOutput: 2000, DailyFee: 400},
			{Code: "CNC", Name: "数控车", Category: pricing.CategoryTurning, DefectRate: 0.02, DailyOutput: 400, SetupDays: 0.5, DailyFee: 900},
		},
		Overhead: pricing.OverheadParams{
			ManagementRate:   0.1,
			ShippingBase:     500,
			BoxesPerShipment: 10,
			UnitsPerBox:      100,
			LoadFactor:       1,
		},
		OtherCost:  0.05,
		LotSize:    1000,
		ProfitRate: pricing.Rate(0.2),
	}
	in.Packaging.Carton = pricing.PackagingItem{UnitPrice: 5, Quantity: 10}
	return in
}

func TestSave_RecomputesOnServer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleInput()
	q, err := s.Save(ctx, SaveRequest{Title: "  flange  ", Input: in})
	require.NoError(t, err)

	want := pricing.Compute(in)
	assert.Equal(t, want.Breakdown, q.Breakdown)
	assert.Equal(t, want.Totals, q.Totals)
	assert.Equal(t, "flange", q.Title)
	assert.Equal(t, "CNY", q.Currency)
	assert.NotZero(t, q.ID)

	_, err = uuid.Parse(q.Ref)
	assert.NoError(t, err)
}

func TestGet_ReturnsStoredSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, SaveRequest{Title: "shaft", Notes: "rush", Currency: "USD", Input: sampleInput()})
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.Equal(t, "2026-03-01 09:01:00", got.CreatedAt)
	assert.Empty(t, got.Issues)
}

func TestGet_UnknownID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_KeepsIssues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleInput()
	in.LotSize = 0
	saved, err := s.Save(ctx, SaveRequest{Input: in})
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "lot_size", got.Issues[0].Field)
	assert.Zero(t, got.Totals.Total)
}

func TestList_FiltersAndOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, req := range []SaveRequest{
		{Title: "bracket", Input: sampleInput()},
		{Title: "pin", Notes: "bracket spare", Input: sampleInput()},
		{Title: "bushing", Input: sampleInput()},
	} {
		_, err := s.Save(ctx, req)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "bushing", all[0].Title)
	assert.Equal(t, "SUS303", all[0].MaterialCode)
	assert.Equal(t, 1000, all[0].LotSize)
	assert.Equal(t, pricing.Compute(sampleInput()).Totals.Total, all[0].Total)

	filtered, err := s.List(ctx, "bracket")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "pin", filtered[0].Title)
	assert.Equal(t, "bracket", filtered[1].Title)

	none, err := s.List(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWriteText_UsesStoredValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, SaveRequest{Title: "shaft", Input: sampleInput()})
	require.NoError(t, err)

	// Stored numbers are rendered as-is even if the engine would disagree.
	_, err = s.db.ExecContext(ctx, `UPDATE quotes SET breakdown_json = ?, totals_json = ? WHERE id = ?`,
		`{"unit_price":12.3456,"subtotal":10.288}`, `{"lot_size":1000,"total":12345.6}`, saved.ID)
	require.NoError(t, err)

	q, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, s.Engine(), q))
	out := buf.String()

	assert.Contains(t, out, "shaft")
	assert.Contains(t, out, "12.35")
	assert.Contains(t, out, "12345.60")
	assert.Contains(t, out, "10.29")
	assert.Contains(t, out, "Profit (20.0%)")
	assert.Contains(t, out, "数控车 > 全检")
}
