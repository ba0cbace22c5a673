package quotes

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/o.quote/internal/pricing"
)

// money rounds a stored float for display only; stored values keep full
// precision.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(1) + "%"
}

// WriteText renders a plain-text summary of a stored quote. It reads the
// stored breakdown and never recomputes; e only orders the step names.
func WriteText(w io.Writer, e *pricing.Engine, q Quote) error {
	var b strings.Builder

	title := q.Title
	if title == "" {
		title = "(untitled)"
	}
	if q.Ref != "" {
		fmt.Fprintf(&b, "Quote %s  %s\n", q.Ref, title)
	} else {
		fmt.Fprintf(&b, "Quote (unsaved)  %s\n", title)
	}
	if q.CreatedAt != "" {
		fmt.Fprintf(&b, "Created:   %s\n", q.CreatedAt)
	}
	fmt.Fprintf(&b, "Material:  %s  D%smm x L%smm, bar %smm\n",
		q.Input.Material.Code,
		decimal.NewFromFloat(q.Input.Geometry.OuterDiameterMM).String(),
		decimal.NewFromFloat(q.Input.Geometry.LengthMM).String(),
		decimal.NewFromFloat(q.Input.Cutting.BarLengthMM).String())

	if steps := e.OrderSteps(q.Input.Processes); len(steps) > 0 {
		names := make([]string, 0, len(steps))
		for _, s := range steps {
			name := s.Name
			if name == "" {
				name = s.Code
			}
			names = append(names, name)
		}
		fmt.Fprintf(&b, "Processes: %s\n", strings.Join(names, " > "))
	}

	bd := q.Breakdown
	fmt.Fprintf(&b, "\n%-20s %14s\n", "Per unit", q.Currency)
	rows := []struct {
		label string
		value float64
	}{
		{"Material", bd.MaterialCost},
		{"Process", bd.ProcessCost},
		{"Overhead", bd.OverheadCost},
		{"Packaging", bd.PackagingCost},
		{"Other", bd.OtherCost},
		{"Subtotal", bd.Subtotal},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-20s %14s\n", r.label, money(r.value))
	}
	rate := "-"
	if q.Input.ProfitRate != nil {
		rate = percent(*q.Input.ProfitRate)
	}
	fmt.Fprintf(&b, "%-20s %14s\n", "Profit ("+rate+")", money(bd.Profit))
	fmt.Fprintf(&b, "%-20s %14s\n", "Unit price", money(bd.UnitPrice))
	fmt.Fprintf(&b, "\n%-20s %14d\n", "Lot size", q.Totals.LotSize)
	fmt.Fprintf(&b, "%-20s %14s\n", "Total", money(q.Totals.Total))

	if len(q.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, is := range q.Issues {
			fmt.Fprintf(&b, "  - %s: %s\n", is.Field, is.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
