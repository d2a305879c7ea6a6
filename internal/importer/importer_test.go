package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/kv"
	"github.com/xenking/waffle-kart/internal/storage/memory"
)

// --- Helpers ---

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func loadScope(t *testing.T, store kv.Store, scope string) map[string]collection.SavedComposition {
	t.Helper()
	items, err := collection.NewStore(kv.Scope(store, scope)).LoadAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]collection.SavedComposition, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

// --- Tests ---

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := writeGz(t, dir, "export1.jsonl.gz",
		`{"scope":"alice","items":[`+
			`{"id":"a1","name":"Plain","baseId":"classic","toppingIds":[],"date":1700000000000},`+
			`{"id":"shared","name":"First copy","baseId":"choco","toppingIds":["maple"],"date":1700000001000}]}`,
		`{"scope":"bob","items":[`+
			`{"id":"b1","name":"Nutty","baseId":"matcha","toppingIds":["nuts","sprinkles"],"date":1700000002000,"aiDescription":"Green and crunchy"}]}`,
	)
	second := writeGz(t, dir, "export2.jsonl.gz",
		`{"scope":"alice","items":[`+
			`{"id":"shared","name":"Second copy","baseId":"redvelvet","toppingIds":[],"date":1700000003000},`+
			`{"id":"a2","name":"Cone","baseId":"waffle-cone","toppingIds":[],"date":1700000004000}]}`,
		`not json`,
		`{"scope":"bad scope!","items":[]}`,
		``,
		`{"scope":"carol","extra":true,"items":null}`,
	)

	store := memory.NewKV()
	im := New(catalog.Default(), store, Options{ExpectedIDs: 1000})

	stats, err := im.Run(ctx, []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Lines:           4,
		Malformed:       2,
		Records:         5,
		Imported:        3,
		Duplicates:      1,
		UnknownBase:     1,
		DroppedToppings: 1,
	}, stats)

	alice := loadScope(t, store, "alice")
	require.Len(t, alice, 2)
	assert.Equal(t, "First copy", alice["shared"].Name)
	assert.Equal(t, "choco", alice["shared"].BaseID)
	assert.Contains(t, alice, "a1")

	bob := loadScope(t, store, "bob")
	require.Len(t, bob, 1)
	assert.Equal(t, []string{"nuts"}, bob["b1"].ToppingIDs)
	assert.Equal(t, "Green and crunchy", bob["b1"].Note)

	t.Run("rerun is idempotent", func(t *testing.T) {
		again, err := im.Run(ctx, []string{first, second})
		require.NoError(t, err)
		assert.Zero(t, again.Imported)
		assert.Equal(t, 3, again.AlreadyStored)
		assert.Len(t, loadScope(t, store, "alice"), 2)
	})
}

func TestRun_KeepsExistingSaves(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKV()
	existing, err := collection.Encode([]collection.SavedComposition{{ID: "mine", Name: "Mine", BaseID: "classic"}})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "alice", collection.StorageKey, existing))

	path := writeGz(t, t.TempDir(), "export.jsonl.gz",
		`{"scope":"alice","items":[{"id":"new","name":"New","baseId":"choco","toppingIds":[],"date":1700000000000}]}`,
	)
	stats, err := New(catalog.Default(), store, Options{}).Run(ctx, []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)

	alice := loadScope(t, store, "alice")
	assert.Contains(t, alice, "mine")
	assert.Contains(t, alice, "new")
}

func TestRun_SameIDDifferentScopes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeGz(t, dir, "a.gz", `{"scope":"alice","items":[{"id":"x","name":"A","baseId":"classic","toppingIds":[],"date":1}]}`)
	b := writeGz(t, dir, "b.gz", `{"scope":"bob","items":[{"id":"x","name":"B","baseId":"classic","toppingIds":[],"date":1}]}`)

	store := memory.NewKV()
	stats, err := New(catalog.Default(), store, Options{}).Run(ctx, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Zero(t, stats.Duplicates)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	im := New(catalog.Default(), memory.NewKV(), Options{})

	stats, err := im.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	_, err = im.Run(ctx, []string{filepath.Join(t.TempDir(), "missing.gz")})
	assert.Error(t, err)

	plain := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("not gzip"), 0o600))
	_, err = im.Run(ctx, []string{plain})
	assert.Error(t, err)
}
