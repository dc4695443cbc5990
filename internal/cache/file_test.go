package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolygon(t *testing.T) *geojson.Geometry {
	t.Helper()
	g, err := geojson.UnmarshalGeometry([]byte(`{"type":"Polygon","coordinates":[[[-97.0,35.0],[-96.0,35.0],[-96.0,36.0],[-97.0,35.0]]]}`))
	require.NoError(t, err)
	return g
}

func TestFileStore_PutGet(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "zones.json"), testLogger())
	ctx := context.Background()

	_, ok := s.Get(ctx, "CAZ001")
	assert.False(t, ok)

	s.Put("CAZ001", testPolygon(t))
	g, ok := s.Get(ctx, "CAZ001")
	require.True(t, ok)
	assert.True(t, g.IsPolygon())
}

func TestFileStore_UnresolvableMarker(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "zones.json"), testLogger())
	ctx := context.Background()

	s.Put("XXZ999", nil)

	g, ok := s.Get(ctx, "XXZ999")
	assert.True(t, ok, "marker counts as a cached entry")
	assert.Nil(t, g)
}

func TestFileStore_GetManyIsPartial(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "zones.json"), testLogger())
	ctx := context.Background()

	s.Put("CAZ001", testPolygon(t))
	s.Put("CAZ002", nil)

	got := s.GetMany(ctx, []string{"CAZ001", "CAZ002", "CAZ003"})
	assert.Len(t, got, 2)
	assert.Contains(t, got, "CAZ001")
	assert.Contains(t, got, "CAZ002")
	assert.NotContains(t, got, "CAZ003")
}

func TestFileStore_PersistLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	ctx := context.Background()

	s := NewFileStore(path, testLogger())
	s.Put("CAZ001", testPolygon(t))
	s.Put("CAZ002", nil)
	require.NoError(t, s.PersistAll(ctx))

	// Fresh store simulates a new session.
	s2 := NewFileStore(path, testLogger())
	loaded, err := s2.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	require.NotNil(t, loaded["CAZ001"])
	assert.True(t, loaded["CAZ001"].IsPolygon())
	assert.Equal(t, testPolygon(t).Polygon, loaded["CAZ001"].Polygon)

	g, ok := s2.Get(ctx, "CAZ002")
	assert.True(t, ok, "marker survives the round trip")
	assert.Nil(t, g)
}

func TestFileStore_LoadAllMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), testLogger())
	loaded, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStore_LoadAllCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, testLogger())
	loaded, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStore_LoadAllIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	ctx := context.Background()

	s := NewFileStore(path, testLogger())
	s.Put("CAZ001", testPolygon(t))
	require.NoError(t, s.PersistAll(ctx))

	first, err := s.LoadAll(ctx)
	require.NoError(t, err)
	second, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
}

func TestFileStore_PersistCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "zones.json")
	s := NewFileStore(path, testLogger())
	s.Put("CAZ001", testPolygon(t))
	require.NoError(t, s.PersistAll(context.Background()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
