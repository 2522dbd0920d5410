package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moodplate/engine/internal/ports/outbound"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	profiles *ProfileRepository
	catalog  *CatalogRepository
	recs     *RecommendationRepository
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(
		&UserProfileModel{},
		&MealLedgerModel{},
		&FoodModel{},
		&RecommendationModel{},
	))

	s.db = db
	s.profiles = NewProfileRepository(db)
	s.catalog = NewCatalogRepository(db)
	s.recs = NewRecommendationRepository(db)
}

func (s *RepositoryTestSuite) TestGetProfile() {
	s.Require().NoError(s.db.Create(&UserProfileModel{
		UserID:               "u1",
		Purpose:              1,
		RecommendedCalories:  1800,
		DeclaredCarbRatio:    0.5,
		DeclaredProteinRatio: 0.3,
		DeclaredFatRatio:     0.2,
	}).Error)

	profile, err := s.profiles.GetProfile(context.Background(), "u1")
	s.Require().NoError(err)
	s.Equal("u1", profile.UserID)
	s.Equal(1, profile.Purpose)
	s.True(profile.HasDeclaredRatio)

	_, err = s.profiles.GetProfile(context.Background(), "ghost")
	s.Require().Error(err)
	s.True(apperrors.Is(err, apperrors.CodeProfileNotFound))
}

func (s *RepositoryTestSuite) TestProfileWithoutDeclaredRatio() {
	s.Require().NoError(s.db.Create(&UserProfileModel{UserID: "u2", Purpose: 2}).Error)

	profile, err := s.profiles.GetProfile(context.Background(), "u2")
	s.Require().NoError(err)
	s.False(profile.HasDeclaredRatio)
}

func (s *RepositoryTestSuite) TestDayEatenSum() {
	rows := []MealLedgerModel{
		{UserID: "u1", Date: "20260828", Kcal: 500, CarbG: 60, ProteinG: 25, FatG: 15},
		{UserID: "u1", Date: "20260828", Kcal: 300, CarbG: 40, ProteinG: 10, FatG: 8},
		{UserID: "u1", Date: "20260827", Kcal: 700, CarbG: 80, ProteinG: 30, FatG: 20},
		{UserID: "u2", Date: "20260828", Kcal: 900, CarbG: 90, ProteinG: 50, FatG: 30},
	}
	s.Require().NoError(s.db.Create(&rows).Error)

	sum, err := s.profiles.GetDayEatenSum(context.Background(), "u1", "20260828")
	s.Require().NoError(err)
	s.InDelta(800.0, sum.Kcal, 1e-9)
	s.InDelta(100.0, sum.CarbG, 1e-9)
	s.InDelta(35.0, sum.ProteinG, 1e-9)
	s.InDelta(23.0, sum.FatG, 1e-9)

	// No rows: zero sum, not an error.
	sum, err = s.profiles.GetDayEatenSum(context.Background(), "u1", "20250101")
	s.Require().NoError(err)
	s.True(sum.IsZero())
}

func (s *RepositoryTestSuite) TestMapFoodNamesToIDs() {
	s.Require().NoError(s.db.Create(&[]FoodModel{
		{Name: "oatmeal"},
		{Name: "chicken bowl"},
	}).Error)

	ids, err := s.catalog.MapFoodNamesToIDs(context.Background(), []string{"oatmeal", "unknown dish"})
	s.Require().NoError(err)
	s.Len(ids, 1)
	s.Contains(ids, "oatmeal")
	s.NotContains(ids, "unknown dish")

	ids, err = s.catalog.MapFoodNamesToIDs(context.Background(), nil)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *RepositoryTestSuite) TestUpsertRecommendationsIdempotent() {
	rows := []outbound.RecommendationRow{
		{Type: "P", FoodID: 1, FoodName: "oatmeal", Score: 0.8, ClusterLabel: "Lean Balanced"},
		{Type: "H", FoodID: 2, FoodName: "chicken bowl", Score: 0.6, ClusterLabel: "Mid High-Protein"},
		{Type: "E", FoodID: 3, FoodName: "fresh idea", Score: 0.1, ClusterLabel: "N/A"},
	}
	ctx := context.Background()
	s.Require().NoError(s.recs.UpsertRecommendations(ctx, "u1", "20260828", "L", rows))

	// Re-running with changed scores overwrites in place.
	rows[0].Score = 0.9
	rows[0].FoodName = "granola"
	s.Require().NoError(s.recs.UpsertRecommendations(ctx, "u1", "20260828", "L", rows))

	var stored []RecommendationModel
	s.Require().NoError(s.db.Where("user_id = ? AND date = ? AND slot = ?", "u1", "20260828", "L").
		Order("rec_type").Find(&stored).Error)
	s.Require().Len(stored, 3)

	byType := make(map[string]RecommendationModel)
	for _, m := range stored {
		byType[m.RecType] = m
	}
	s.Equal("granola", byType["P"].FoodName)
	s.InDelta(0.9, byType["P"].Score, 1e-9)
	s.Equal("chicken bowl", byType["H"].FoodName)
}

func (s *RepositoryTestSuite) TestUpsertScopesToSlot() {
	ctx := context.Background()
	row := []outbound.RecommendationRow{{Type: "P", FoodName: "oatmeal", Score: 0.5}}

	s.Require().NoError(s.recs.UpsertRecommendations(ctx, "u1", "20260828", "M", row))
	s.Require().NoError(s.recs.UpsertRecommendations(ctx, "u1", "20260828", "L", row))
	s.Require().NoError(s.recs.UpsertRecommendations(ctx, "u1", "20260829", "M", row))

	var count int64
	s.Require().NoError(s.db.Model(&RecommendationModel{}).Count(&count).Error)
	s.Equal(int64(3), count)
}

func (s *RepositoryTestSuite) TestUpsertEmptyBatchIsNoop() {
	s.Require().NoError(s.recs.UpsertRecommendations(context.Background(), "u1", "20260828", "L", nil))

	var count int64
	s.Require().NoError(s.db.Model(&RecommendationModel{}).Count(&count).Error)
	s.Equal(int64(0), count)
}

func TestMacroSumIsZero(t *testing.T) {
	assert.True(t, outbound.MacroSum{}.IsZero())
	assert.False(t, outbound.MacroSum{Kcal: 1}.IsZero())
	require.False(t, outbound.MacroSum{FatG: 0.1}.IsZero())
}
