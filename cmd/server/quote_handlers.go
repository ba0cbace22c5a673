package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/o.quote/internal/draft"
	"github.com/Simplici0/o.quote/internal/pricing"
	"github.com/Simplici0/o.quote/internal/quotes"
)

// calcResponse carries the resolved input so the client can keep editing the
// exact snapshot that was priced.
type calcResponse struct {
	Currency string             `json:"currency"`
	Input    pricing.QuoteInput `json:"input"`
	Result   pricing.Result     `json:"result"`
}

// handleQuoteCompute prices an already-resolved input. Engine issues are part
// of a 200 response.
func (s *server) handleQuoteCompute(w http.ResponseWriter, r *http.Request) {
	var in pricing.QuoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.compute(in))
}

// handleQuoteCalc resolves catalog codes against the stored defaults, applies
// the overrides and prices the result.
func (s *server) handleQuoteCalc(w http.ResponseWriter, r *http.Request) {
	var req draft.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	defaults, err := s.catalog.GetDefaults(ctx)
	if err != nil {
		s.log.Error("load defaults", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load defaults")
		return
	}

	dr, err := draft.Resolve(ctx, s.catalog, defaults, req)
	if err != nil {
		s.log.Error("resolve draft", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve catalog codes")
		return
	}

	start := time.Now()
	res := dr.Compute(s.engine)
	s.observe(res, time.Since(start))

	writeJSON(w, http.StatusOK, calcResponse{
		Currency: defaults.Currency,
		Input:    dr.Input(),
		Result:   res,
	})
}

// handleQuoteSave stores a quote. The result is always recomputed here; a
// result computed by the client is never trusted.
func (s *server) handleQuoteSave(w http.ResponseWriter, r *http.Request) {
	var req quotes.SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := s.quotes.Save(r.Context(), req)
	if err != nil {
		s.log.Error("save quote", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save quote")
		return
	}
	s.metrics.ObserveSaved()
	s.log.Info("quote saved",
		zap.String("quote_ref", q.Ref),
		zap.Int("lot_size", q.Totals.LotSize),
		zap.Float64("total", q.Totals.Total),
		zap.Int("issues", len(q.Issues)),
	)
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items, err := s.quotes.List(r.Context(), query)
	if err != nil {
		s.log.Error("list quotes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	q, ok := s.loadQuote(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := quotes.WriteText(w, s.engine, q); err != nil {
		s.log.Warn("write quote text", zap.String("quote_ref", q.Ref), zap.Error(err))
	}
}

func (s *server) loadQuote(w http.ResponseWriter, r *http.Request) (quotes.Quote, bool) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return quotes.Quote{}, false
	}

	q, err := s.quotes.Get(r.Context(), id)
	if errors.Is(err, quotes.ErrNotFound) {
		writeError(w, http.StatusNotFound, "quote not found")
		return quotes.Quote{}, false
	}
	if err != nil {
		s.log.Error("load quote", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load quote")
		return quotes.Quote{}, false
	}
	return q, true
}
