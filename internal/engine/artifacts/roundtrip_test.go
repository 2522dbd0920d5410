package artifacts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/engine/artifacts"
	"github.com/moodplate/engine/test/testutils"
)

// Builder output survives a write-then-load cycle with the same shape the
// online pipeline reads.
func TestTablesSurviveDiskRoundTrip(t *testing.T) {
	factory := testutils.NewFoodFactory(1)

	var catalog []artifacts.CatalogRow
	names := make([]string, 6)
	for i := range names {
		names[i] = factory.RandomName()
		catalog = append(catalog, factory.CatalogRow(names[i]))
	}

	var logs []artifacts.MealLogRow
	contexts := [][2]string{{"positive", "low"}, {"neutral", "medium"}, {"positive", "medium"}}
	for i, name := range names[:4] {
		pair := contexts[i%len(contexts)]
		logs = append(logs,
			factory.LogRow("u1", name, pair[0], pair[1], true),
			factory.LogRow("u2", name, pair[0], pair[1], i%2 == 0),
		)
	}

	profiles := []artifacts.ProfileRow{
		{UserID: "u1", DeclaredCarb: 0.4, DeclaredProtein: 0.4, DeclaredFat: 0.2},
		{UserID: "u2"},
	}

	tables, err := artifacts.Build(catalog, profiles, logs, 0.5)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, artifacts.WriteTables(dir, tables))

	bundle, err := artifacts.NewCache(1, 1.0, zap.NewNop()).Load(dir)
	require.NoError(t, err)

	assert.Len(t, bundle.Foods, 4)
	assert.Len(t, bundle.Unobserved, 2)
	assert.Len(t, bundle.Prefs, 2)
	assert.Len(t, bundle.ContextStats, len(tables.ContextStats))

	for _, item := range tables.Foods {
		loaded, ok := bundle.Foods[item.Name]
		require.True(t, ok, item.Name)
		assert.Equal(t, item.CatalogID, loaded.CatalogID)
		assert.InDelta(t, item.MeanCalories, loaded.MeanCalories, 1e-9)
		assert.InDelta(t, item.Ratio.Carb, loaded.Ratio.Carb, 1e-9)
		assert.InDelta(t, item.EmotionScore, loaded.EmotionScore, 1e-9)
		assert.Equal(t, item.LogCount, loaded.LogCount)
	}

	u1 := bundle.Prefs["u1"]
	assert.InDelta(t, tables.Prefs[0].HybridRatio.Carb, u1.HybridRatio.Carb, 1e-9)
}
