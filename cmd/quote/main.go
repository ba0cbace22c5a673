package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/config"
	"github.com/Simplici0/o.quote/internal/db"
	"github.com/Simplici0/o.quote/internal/draft"
	"github.com/Simplici0/o.quote/internal/logging"
	"github.com/Simplici0/o.quote/internal/migrations"
	"github.com/Simplici0/o.quote/internal/pricing"
	"github.com/Simplici0/o.quote/internal/quotes"
	"github.com/Simplici0/o.quote/internal/seed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	fs := newFlagSet("quote", stderr)
	opts, err := parseArgs(fs, argv, cfg.DBPath, cfg.CollationLocale.String())
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return 2
	}

	logger, err := logging.New(logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := quote(ctx, opts, stdin, stdout, logger); err != nil {
		logger.Error("quote failed", zap.Error(err))
		return 1
	}
	return 0
}

func quote(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer, logger *zap.Logger) error {
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return fmt.Errorf("parse locale: %w", err)
	}

	src, closeSrc, err := openInput(opts.Input, stdin)
	if err != nil {
		return err
	}
	defer closeSrc()

	database, err := db.Open(ctx, opts.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	migrations.SetLogger(logger)
	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{}); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	store := catalog.NewStore(database)
	defaults, err := store.GetDefaults(ctx)
	if err != nil {
		return err
	}
	engine := pricing.New(pricing.WithLocale(tag))

	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if opts.Watch {
		return watch(ctx, dec, opts, store, defaults, engine, stdout, logger)
	}

	var req draft.Request
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("decode %s: %w", opts.Input, err)
	}
	dr, err := draft.Resolve(ctx, store, defaults, req)
	if err != nil {
		return err
	}

	res := dr.Compute(engine)
	if !res.OK() {
		logger.Warn("quote has issues", zap.Int("issues", len(res.Issues)))
	}
	return printResult(stdout, opts.JSON, engine, defaults.Currency, dr.Input(), res)
}

// watch resolves every draft in the stream and hands it to a Recomputer, so
// only the draft standing when edits pause is printed. The last one is
// flushed at end of input.
func watch(ctx context.Context, dec *json.Decoder, opts options, store *catalog.Store, defaults catalog.Defaults,
	engine *pricing.Engine, stdout io.Writer, logger *zap.Logger) error {
	var printErr error
	rc := draft.NewRecomputer(engine, opts.Debounce, func(in pricing.QuoteInput, res pricing.Result) {
		if printErr != nil {
			return
		}
		if !res.OK() {
			logger.Warn("quote has issues", zap.Int("lot_size", in.LotSize), zap.Int("issues", len(res.Issues)))
		}
		printErr = printResult(stdout, opts.JSON, engine, defaults.Currency, in, res)
	})
	defer rc.Close()

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req draft.Request
		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decode %s draft %d: %w", opts.Input, n, err)
		}
		dr, err := draft.Resolve(ctx, store, defaults, req)
		if err != nil {
			return err
		}
		if issues := dr.Issues(); len(issues) > 0 {
			logger.Warn("draft has unresolved entries", zap.Int("draft", n), zap.Any("issues", issues))
		}
		rc.Submit(dr.Input())
	}

	rc.Flush()
	rc.Close()
	return printErr
}

func printResult(w io.Writer, asJSON bool, e *pricing.Engine, currency string, in pricing.QuoteInput, res pricing.Result) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Currency string             `json:"currency"`
			Input    pricing.QuoteInput `json:"input"`
			Result   pricing.Result     `json:"result"`
		}{currency, in, res})
	}
	return writeSummary(w, e, currency, in, res)
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeSummary(w io.Writer, e *pricing.Engine, currency string, in pricing.QuoteInput, res pricing.Result) error {
	err := quotes.WriteText(w, e, quotes.Quote{
		Currency:  currency,
		Input:     in,
		Breakdown: res.Breakdown,
		Totals:    res.Totals,
		Issues:    res.Issues,
	})
	if err != nil {
		return err
	}
	if len(res.Recommendations) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nRecommended bar lengths:")
	for i, c := range res.Recommendations {
		fmt.Fprintf(w, "  %d. %6.0fmm  %3d pcs/bar  %8.3fg  %.4f\n",
			i+1, c.BarLengthMM, c.PiecesPerBar, c.MassPerPieceG, c.CostPerPiece)
	}
	return nil
}
