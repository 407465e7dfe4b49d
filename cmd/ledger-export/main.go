package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/ledger"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	which := flag.String("ledger", "sales", "ledger to export: sales, bonuses or transactions")
	from := flag.String("from", "", "first day to include (YYYY-MM-DD)")
	to := flag.String("to", "", "last day to include (YYYY-MM-DD), defaults to today")
	out := flag.String("out", "", "output file, stdout when empty")
	flag.Parse()

	// Keep stdout for the CSV when no file is given
	if *out == "" {
		log.SetOutput(os.Stderr)
	}

	kind, err := ledger.ParseKind(*which)
	if err != nil {
		log.Fatal(err)
	}
	rng, err := ledger.ParseRange(*from, *to, time.Now())
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, kind, rng, *out); err != nil {
		log.Fatalf("ledger export failed: %v", err)
	}
}

func run(ctx context.Context, kind ledger.Kind, rng ledger.Range, out string) error {
	exp, err := ledger.Open(ctx, db.DSNFromEnv())
	if err != nil {
		return err
	}
	defer exp.Close()

	export := func(w io.Writer) (int, error) {
		return exp.Export(ctx, kind, rng, w)
	}

	start := time.Now()
	var n int
	if out == "" {
		n, err = export(os.Stdout)
	} else {
		var f *os.File
		f, err = os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		n, err = exportTo(f, export)
	}
	if err != nil {
		return err
	}
	logging.LogKV("info", "ledger exported", map[string]interface{}{
		"ledger":      kind,
		"rows":        n,
		"from":        rng.From.Format("2006-01-02"),
		"to":          rng.To.AddDate(0, 0, -1).Format("2006-01-02"),
		"out":         out,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// exportTo runs export into w and closes it. A failed close means the file may be
// truncated, so it fails the export.
func exportTo(w io.WriteCloser, export func(io.Writer) (int, error)) (int, error) {
	n, err := export(w)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	return n, err
}
