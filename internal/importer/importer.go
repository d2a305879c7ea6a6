// Package importer bulk-loads exported saved collections into a kv.Store.
//
// Input files are gzip-compressed JSON lines, one customer per line:
//
//	{"scope": "alice", "items": [ <saved composition record>, ... ]}
//
// Exports taken from different instances overlap, so the same composition
// id can appear in several files. Only the copy from the first file that
// has it is imported. Finding those ids runs in two concurrent passes: the
// first builds a bloom filter of ids per file, the second confirms filter
// hits exactly. A third, sequential pass writes.
package importer

import (
	"bufio"
	"context"
	"math/bits"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/kv"
	"github.com/xenking/waffle-kart/internal/workspace"
)

const (
	// Files are tracked in a uint bitmask.
	maxFiles     = bits.UintSize
	maxLineBytes = 4 << 20
)

// Options tunes the duplicate filters.
type Options struct {
	// ExpectedIDs is the expected number of ids per file. Defaults to 1M.
	ExpectedIDs uint
	// FalsePositiveRate defaults to 0.001.
	FalsePositiveRate float64
}

// Stats summarises a run.
type Stats struct {
	// Lines counts well-formed lines; Malformed the rest.
	Lines           int
	Malformed       int
	Records         int
	Imported        int
	Duplicates      int
	AlreadyStored   int
	UnknownBase     int
	DroppedToppings int
}

// Importer writes exported collections through collection.Store, so imported
// lists are read back exactly like lists saved by the API.
type Importer struct {
	catalog *catalog.Catalog
	store   kv.Store
	opts    Options
}

// New returns an Importer.
func New(c *catalog.Catalog, store kv.Store, opts Options) *Importer {
	if opts.ExpectedIDs == 0 {
		opts.ExpectedIDs = 1_000_000
	}
	if opts.FalsePositiveRate <= 0 {
		opts.FalsePositiveRate = 0.001
	}
	return &Importer{catalog: c, store: store, opts: opts}
}

// entry is one decoded line.
type entry struct {
	scope string
	items []collection.SavedComposition
}

// key identifies a composition across files. Ids are only unique within a
// customer's list.
func key(scope, id string) string {
	return scope + "\x00" + id
}

// Run imports files in order.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	var stats Stats
	if len(files) == 0 {
		return stats, nil
	}
	if len(files) > maxFiles {
		return stats, errors.Errorf("at most %d files per run, got %d", maxFiles, len(files))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return stats, errors.Wrapf(err, "check file %s", f)
		}
	}
	lg := zctx.From(ctx)

	lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	lg.Info("Pass 2: finding shared ids")
	owners, err := findShared(ctx, files, filters)
	if err != nil {
		return stats, errors.Wrap(err, "find shared ids")
	}
	lg.Info("Shared ids found", zap.Int("count", len(owners)))

	lg.Info("Pass 3: writing collections")
	for i, f := range files {
		if err := im.write(ctx, i, f, owners, &stats); err != nil {
			return stats, errors.Wrapf(err, "import file %d", i+1)
		}
	}
	return stats, nil
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.opts.ExpectedIDs, im.opts.FalsePositiveRate)
			var ids int
			if err := streamFile(ctx, path, func(e entry) error {
				for _, item := range e.items {
					filter.AddString(key(e.scope, item.ID))
					ids++
				}
				return nil
			}, nil); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}
			zctx.From(ctx).Info("Pass 1 complete", zap.Int("file", i+1), zap.Int("ids", ids))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findShared returns, for every id present in two or more files, the index
// of the first file that has it. Every file records the filter hits it
// really contains, so merged masks are exact despite bloom false positives.
func findShared(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]int, error) {
	masks := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			if err := streamFile(ctx, path, func(e entry) error {
				for _, item := range e.items {
					k := key(e.scope, item.ID)
					for j, f := range filters {
						if j != i && f.TestString(k) {
							found[k] |= bit
							break
						}
					}
				}
				return nil
			}, nil); err != nil {
				return errors.Wrapf(err, "scan file %d", i+1)
			}
			masks[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, m := range masks {
		for k, mask := range m {
			merged[k] |= mask
		}
	}
	owners := make(map[string]int)
	for k, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			owners[k] = bits.TrailingZeros(mask)
		}
	}
	return owners, nil
}

func (im *Importer) write(ctx context.Context, idx int, path string, owners map[string]int, stats *Stats) error {
	lg := zctx.From(ctx).With(zap.Int("file", idx+1))
	return streamFile(ctx, path, func(e entry) error {
		stats.Lines++
		kept := make([]collection.SavedComposition, 0, len(e.items))
		for _, item := range e.items {
			stats.Records++
			if owner, ok := owners[key(e.scope, item.ID)]; ok && owner != idx {
				stats.Duplicates++
				continue
			}
			item, ok := im.sanitize(ctx, e.scope, item, stats)
			if !ok {
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == 0 {
			return nil
		}

		added, err := collection.NewStore(kv.Scope(im.store, e.scope)).Merge(ctx, kept)
		if err != nil {
			return errors.Wrapf(err, "merge scope %q", e.scope)
		}
		stats.Imported += added
		stats.AlreadyStored += len(kept) - added
		return nil
	}, func(line int, err error) {
		stats.Malformed++
		lg.Warn("Skipping malformed line", zap.Int("line", line), zap.Error(err))
	})
}

// sanitize drops a record with an unknown base and strips unknown toppings.
func (im *Importer) sanitize(ctx context.Context, scope string, item collection.SavedComposition, stats *Stats) (collection.SavedComposition, bool) {
	if _, ok := im.catalog.FindBase(item.BaseID); !ok {
		stats.UnknownBase++
		zctx.From(ctx).Warn("Skipping composition with unknown base",
			zap.String("scope", scope),
			zap.String("id", item.ID),
			zap.String("base", item.BaseID),
		)
		return item, false
	}
	toppings := make([]string, 0, len(item.ToppingIDs))
	for _, id := range item.ToppingIDs {
		if _, ok := im.catalog.FindTopping(id); ok {
			toppings = append(toppings, id)
		}
	}
	stats.DroppedToppings += len(item.ToppingIDs) - len(toppings)
	item.ToppingIDs = toppings
	return item, true
}

// streamFile calls fn for every well-formed line of a gzip JSON-lines file.
// Malformed lines go to bad, or are skipped silently when bad is nil.
func streamFile(ctx context.Context, path string, fn func(entry) error, bad func(line int, err error)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		e, err := decodeLine(raw)
		if err != nil {
			if bad != nil {
				bad(line, err)
			}
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func decodeLine(raw []byte) (entry, error) {
	var (
		e     entry
		items jx.Raw
	)
	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, k string) error {
		switch k {
		case "scope":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "scope")
			}
			e.scope = v
			return nil
		case "items":
			v, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "items")
			}
			items = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return entry{}, err
	}
	if !workspace.ValidID(e.scope) {
		return entry{}, errors.Errorf("invalid scope %q", e.scope)
	}
	if items == nil || items.Type() == jx.Null {
		return e, nil
	}
	list, err := collection.Decode(items)
	if err != nil {
		return entry{}, errors.Wrap(err, "items")
	}
	e.items = list
	return e, nil
}
