package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
)

// writeFixture builds a small artifact generation on disk.
func writeFixture(t *testing.T, dir string, withClusters bool) {
	t.Helper()

	catalog := []CatalogRow{
		{ID: 1, Name: "oatmeal"},
		{ID: 2, Name: "chicken bowl"},
		{ID: 3, Name: "fresh idea"},
	}
	logs := []MealLogRow{
		{UserID: "u1", FoodName: "oatmeal", Mood: "positive", Energy: "low", Stable: true,
			Calories: 300, CarbG: 50, ProteinG: 10, FatG: 5},
		{UserID: "u1", FoodName: "chicken bowl", Mood: "positive", Energy: "low", Stable: true,
			Calories: 450, CarbG: 40, ProteinG: 35, FatG: 12},
	}
	tables, err := Build(catalog, nil, logs, 0.5)
	require.NoError(t, err)
	require.NoError(t, WriteTables(dir, tables))

	if withClusters {
		ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}
		clusters := map[mealcontext.Context][]food.Cluster{
			ctx: {
				{Context: ctx, Index: 0, LabelKey: "balanced", DisplayLabel: "Lean Balanced", Size: 2},
			},
		}
		assignments := []food.Assignment{
			{Context: ctx, FoodName: "oatmeal", Cluster: 0},
			{Context: ctx, FoodName: "chicken bowl", Cluster: 0},
		}
		cfg := &ClusterConfig{K: 5, Seed: 42}
		require.NoError(t, WriteClusters(dir, cfg, clusters, assignments))
	}
}

func TestCacheHitOnUnchangedFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, false)
	cache := NewCache(2, 1.0, zap.NewNop())

	first, err := cache.Load(dir)
	require.NoError(t, err)
	second, err := cache.Load(dir)
	require.NoError(t, err)

	// Same generation, same bundle instance: no re-read happened.
	assert.Same(t, first, second)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheReloadsWhenFilesChange(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, false)
	cache := NewCache(2, 1.0, zap.NewNop())

	first, err := cache.Load(dir)
	require.NoError(t, err)

	// Touch one artifact file into the future; the fingerprint must change.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, FileFoodStats), future, future))

	second, err := cache.Load(dir)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)

	_, misses := cache.Stats()
	assert.Equal(t, int64(2), misses)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	dirs := []string{t.TempDir(), t.TempDir(), t.TempDir()}
	for i, dir := range dirs {
		writeFixture(t, dir, false)
		// Force distinct fingerprints even on coarse-mtime filesystems.
		stamp := time.Now().Add(time.Duration(i+1) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(dir, FileFoodStats), stamp, stamp))
	}
	cache := NewCache(2, 1.0, zap.NewNop())

	for _, dir := range dirs {
		_, err := cache.Load(dir)
		require.NoError(t, err)
	}

	// dirs[0] was evicted by dirs[2]; re-loading it is a miss. dirs[2]
	// stays resident.
	_, err := cache.Load(dirs[0])
	require.NoError(t, err)
	_, err = cache.Load(dirs[2])
	require.NoError(t, err)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(4), misses)
}

func TestLoadBundleWithoutClusterFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, false)

	bundle, err := NewCache(1, 1.0, zap.NewNop()).Load(dir)
	require.NoError(t, err)

	assert.Len(t, bundle.Foods, 2)
	assert.Len(t, bundle.Unobserved, 1)
	assert.Equal(t, "fresh idea", bundle.Unobserved[0].Name)
	assert.Empty(t, bundle.Clusters)
	assert.Empty(t, bundle.Stability)
	assert.Nil(t, bundle.ClusterConfig)

	ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}
	assert.Len(t, bundle.StatsByContext[ctx], 2)
}

func TestLoadBundleWithClusterFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, true)

	bundle, err := NewCache(1, 1.0, zap.NewNop()).Load(dir)
	require.NoError(t, err)

	ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}
	require.Len(t, bundle.Clusters[ctx], 1)
	assert.Equal(t, "Lean Balanced", bundle.Clusters[ctx][0].DisplayLabel)
	require.NotNil(t, bundle.ClusterConfig)
	assert.Equal(t, 5, bundle.ClusterConfig.K)

	assert.Equal(t, 0, bundle.Assignments[food.ContextFood{Context: ctx, FoodName: "oatmeal"}])

	// Both rows ever-stable in one cluster: p = (2+1)/(2+2) = 0.75.
	est, ok := bundle.Stability[food.ContextCluster{Context: ctx, Cluster: 0}]
	require.True(t, ok)
	assert.InDelta(t, 0.75, est.P, 1e-9)
}

func TestLoadFailsOnMissingCoreTable(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, false)
	require.NoError(t, os.Remove(filepath.Join(dir, FileContextStats)))

	_, err := NewCache(1, 1.0, zap.NewNop()).Load(dir)
	assert.Error(t, err)
}

func TestFingerprintTracksAbsentFiles(t *testing.T) {
	dir := t.TempDir()
	before := Fingerprint(dir)
	assert.Contains(t, before, absentSentinel)

	writeFixture(t, dir, false)
	after := Fingerprint(dir)
	assert.NotEqual(t, before, after)
}
