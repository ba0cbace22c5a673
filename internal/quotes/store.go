// Package quotes persists finalized quotes. Every save recomputes the result
// on the server with the same engine the editing session uses, so the stored
// numbers are authoritative and the client's figures only provisional.
package quotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/o.quote/internal/pricing"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP text.
const timeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when no quote has the requested id.
var ErrNotFound = errors.New("quotes: not found")

// SaveRequest is a finalized draft. A client-computed result, if any, is
// ignored.
type SaveRequest struct {
	Title    string             `json:"title"`
	Notes    string             `json:"notes"`
	Currency string             `json:"currency"`
	Input    pricing.QuoteInput `json:"input"`
}

// Quote is a stored snapshot: the input and the result computed from it at
// save time.
type Quote struct {
	ID        int64              `json:"id"`
	Ref       string             `json:"ref"`
	CreatedAt string             `json:"created_at"`
	Title     string             `json:"title"`
	Notes     string             `json:"notes"`
	Currency  string             `json:"currency"`
	Input     pricing.QuoteInput `json:"input"`
	Breakdown pricing.Breakdown  `json:"breakdown"`
	Totals    pricing.Totals     `json:"totals"`
	Issues    []pricing.Issue    `json:"issues"`
}

// ListItem is one row of the quote list.
type ListItem struct {
	ID           int64   `json:"id"`
	Ref          string  `json:"ref"`
	CreatedAt    string  `json:"created_at"`
	Title        string  `json:"title"`
	MaterialCode string  `json:"material_code"`
	LotSize      int     `json:"lot_size"`
	Currency     string  `json:"currency"`
	Total        float64 `json:"total"`
}

// Store reads and writes the quotes table.
type Store struct {
	db     *sql.DB
	engine *pricing.Engine
	now    func() time.Time
}

// NewStore returns a Store recomputing with engine. A nil engine uses the
// package defaults of pricing.
func NewStore(db *sql.DB, engine *pricing.Engine) *Store {
	if engine == nil {
		engine = pricing.New()
	}
	return &Store{db: db, engine: engine, now: time.Now}
}

// Engine returns the engine quotes are recomputed with.
func (s *Store) Engine() *pricing.Engine {
	return s.engine
}

// Save recomputes req.Input and stores input and result together. Quotes with
// issues are stored as well; the issues are kept alongside.
func (s *Store) Save(ctx context.Context, req SaveRequest) (Quote, error) {
	in := req.Input.Clone()
	res := s.engine.Compute(in)

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "CNY"
	}

	q := Quote{
		Ref:       uuid.NewString(),
		CreatedAt: s.now().UTC().Format(timeLayout),
		Title:     strings.TrimSpace(req.Title),
		Notes:     strings.TrimSpace(req.Notes),
		Currency:  currency,
		Input:     in,
		Breakdown: res.Breakdown,
		Totals:    res.Totals,
		Issues:    res.Issues,
	}
	if q.Issues == nil {
		q.Issues = []pricing.Issue{}
	}

	inputJSON, err := json.Marshal(q.Input)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote input: %w", err)
	}
	breakdownJSON, err := json.Marshal(q.Breakdown)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote breakdown: %w", err)
	}
	totalsJSON, err := json.Marshal(q.Totals)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote totals: %w", err)
	}
	issuesJSON, err := json.Marshal(q.Issues)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote issues: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			ref, created_at, title, notes, material_code, lot_size, currency,
			input_json, breakdown_json, totals_json, issues_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.Ref, q.CreatedAt, q.Title, q.Notes, in.Material.Code, in.LotSize, q.Currency,
		string(inputJSON), string(breakdownJSON), string(totalsJSON), string(issuesJSON))
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	q.ID, err = result.LastInsertId()
	if err != nil {
		return Quote{}, fmt.Errorf("read quote id: %w", err)
	}
	return q, nil
}

// Get returns the stored quote without recomputing it.
func (s *Store) Get(ctx context.Context, id int64) (Quote, error) {
	var q Quote
	var inputJSON, breakdownJSON, totalsJSON, issuesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, ref, strftime('%Y-%m-%d %H:%M:%S', created_at), COALESCE(title, ''), COALESCE(notes, ''), currency,
			input_json, breakdown_json, totals_json, issues_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(&q.ID, &q.Ref, &q.CreatedAt, &q.Title, &q.Notes, &q.Currency,
		&inputJSON, &breakdownJSON, &totalsJSON, &issuesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, fmt.Errorf("query quote %d: %w", id, err)
	}

	if err := json.Unmarshal([]byte(inputJSON), &q.Input); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d input: %w", id, err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &q.Breakdown); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d breakdown: %w", id, err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &q.Totals); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d totals: %w", id, err)
	}
	if err := json.Unmarshal([]byte(issuesJSON), &q.Issues); err != nil {
		return Quote{}, fmt.Errorf("decode quote %d issues: %w", id, err)
	}
	return q, nil
}

// List returns quotes newest first. A non-empty query filters on title and
// notes.
func (s *Store) List(ctx context.Context, query string) ([]ListItem, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			ref,
			strftime('%Y-%m-%d %H:%M:%S', created_at),
			COALESCE(title, ''),
			COALESCE(material_code, ''),
			lot_size,
			currency,
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	items := make([]ListItem, 0)
	for rows.Next() {
		var item ListItem
		var totalsJSON string
		if err := rows.Scan(&item.ID, &item.Ref, &item.CreatedAt, &item.Title, &item.MaterialCode,
			&item.LotSize, &item.Currency, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.Total = extractTotal(totalsJSON)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return items, nil
}

func extractTotal(totalsJSON string) float64 {
	var totals pricing.Totals
	if err := json.Unmarshal([]byte(totalsJSON), &totals); err != nil {
		return 0
	}
	return totals.Total
}
