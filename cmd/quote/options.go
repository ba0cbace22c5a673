package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

const defaultDebounce = 300 * time.Millisecond

type options struct {
	DBPath   string
	Input    string
	JSON     bool
	Locale   string
	Watch    bool
	Debounce time.Duration
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage:")
		fmt.Fprintf(out, "  %s -input draft.json [-db ./dev.db] [-json]\n", name)
		fmt.Fprintf(out, "  cat draft.json | %s -input -\n", name)
		fmt.Fprintf(out, "  edits.ndjson | %s -input - -watch [-debounce 300ms]\n\n", name)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs reads the flags. dbPath and locale are the configured defaults.
func parseArgs(fs *flag.FlagSet, argv []string, dbPath, locale string) (options, error) {
	var o options
	fs.StringVar(&o.DBPath, "db", dbPath, "SQLite catalog database")
	fs.StringVar(&o.Input, "input", "", "draft JSON file, or - for stdin")
	fs.BoolVar(&o.JSON, "json", false, "print the full result as JSON")
	fs.StringVar(&o.Locale, "locale", locale, "collation locale for step names")
	fs.BoolVar(&o.Watch, "watch", false, "read a stream of drafts and print the latest once edits settle")
	fs.DurationVar(&o.Debounce, "debounce", defaultDebounce, "quiet period before recomputing in -watch mode")

	if err := fs.Parse(argv); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.Input == "" {
		return o, errors.New("-input is required")
	}
	if o.Debounce < 0 {
		return o, errors.New("-debounce must not be negative")
	}
	return o, nil
}
