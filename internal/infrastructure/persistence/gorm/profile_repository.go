package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/moodplate/engine/internal/ports/outbound"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

// ProfileRepository implements the profile and ledger read contracts.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a profile repository.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile returns the user's profile or a PROFILE_NOT_FOUND error.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*outbound.Profile, error) {
	var model UserProfileModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewProfileNotFoundError(userID)
		}
		return nil, result.Error
	}

	hasDeclared := model.DeclaredCarbRatio+model.DeclaredProteinRatio+model.DeclaredFatRatio > 0
	return &outbound.Profile{
		UserID:               model.UserID,
		Purpose:              model.Purpose,
		RecommendedCalories:  model.RecommendedCalories,
		DeclaredCarbRatio:    model.DeclaredCarbRatio,
		DeclaredProteinRatio: model.DeclaredProteinRatio,
		DeclaredFatRatio:     model.DeclaredFatRatio,
		HasDeclaredRatio:     hasDeclared,
	}, nil
}

// GetDayEatenSum sums the ledger for one YYYYMMDD date.
func (r *ProfileRepository) GetDayEatenSum(ctx context.Context, userID, date string) (outbound.MacroSum, error) {
	return r.sumWhere(ctx, "user_id = ? AND date = ?", userID, date)
}

// GetRecentMacroSum sums intake over the trailing days window, ending today.
func (r *ProfileRepository) GetRecentMacroSum(ctx context.Context, userID string, days int) (outbound.MacroSum, error) {
	since := time.Now().AddDate(0, 0, -days).Format("20060102")
	return r.sumWhere(ctx, "user_id = ? AND date >= ?", userID, since)
}

func (r *ProfileRepository) sumWhere(ctx context.Context, query string, args ...interface{}) (outbound.MacroSum, error) {
	var sum outbound.MacroSum
	result := r.db.WithContext(ctx).Model(&MealLedgerModel{}).
		Select("COALESCE(SUM(kcal),0) AS kcal, COALESCE(SUM(carb_g),0) AS carb_g, COALESCE(SUM(protein_g),0) AS protein_g, COALESCE(SUM(fat_g),0) AS fat_g").
		Where(query, args...).
		Scan(&sum)
	if result.Error != nil {
		return outbound.MacroSum{}, result.Error
	}
	return sum, nil
}

// CatalogRepository resolves food names against the catalog table.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// MapFoodNamesToIDs returns the name→id mapping for every known name;
// unknown names are simply absent from the result.
func (r *CatalogRepository) MapFoodNamesToIDs(ctx context.Context, names []string) (map[string]int64, error) {
	if len(names) == 0 {
		return map[string]int64{}, nil
	}
	var models []FoodModel
	result := r.db.WithContext(ctx).Where("name IN ?", names).Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	out := make(map[string]int64, len(models))
	for _, m := range models {
		out[m.Name] = m.ID
	}
	return out, nil
}
