// Command collection-import loads gzip JSON-lines exports of saved
// collections into the configured storage.
//
//	collection-import export1.jsonl.gz export2.jsonl.gz
//
// Storage is configured exactly like the API server (WAFFLE_STORAGE_*).
// When an id appears in several files the copy from the earliest file on
// the command line wins.
package main

import (
	"context"
	"flag"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	appkg "github.com/xenking/waffle-kart/internal/app"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/importer"
)

func main() {
	var opts importer.Options
	flag.UintVar(&opts.ExpectedIDs, "expected-ids", 1_000_000, "expected composition ids per file, sizes the bloom filters")
	flag.Float64Var(&opts.FalsePositiveRate, "fpr", 0.001, "bloom filter false positive rate")
	flag.Parse()
	files := flag.Args()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if len(files) == 0 {
			return errors.New("no input files")
		}
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		store, err := appkg.OpenStorage(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx = zctx.Base(ctx, lg)
		stats, err := importer.New(catalog.Default(), store.KV, opts).Run(ctx, files)
		if err != nil {
			return errors.Wrap(err, "import")
		}
		lg.Info("Import complete",
			zap.String("storage", cfg.Storage.Driver),
			zap.Int("lines", stats.Lines),
			zap.Int("malformed", stats.Malformed),
			zap.Int("records", stats.Records),
			zap.Int("imported", stats.Imported),
			zap.Int("duplicates", stats.Duplicates),
			zap.Int("already_stored", stats.AlreadyStored),
			zap.Int("unknown_base", stats.UnknownBase),
			zap.Int("dropped_toppings", stats.DroppedToppings),
		)
		return nil
	})
}
