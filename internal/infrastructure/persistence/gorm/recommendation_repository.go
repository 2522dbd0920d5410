package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/moodplate/engine/internal/ports/outbound"
)

// RecommendationRepository implements the engine's single write contract.
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a recommendation repository.
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// UpsertRecommendations writes all rows for (user, date, slot) atomically.
// Conflicts on the (user, date, slot, type) business key update in place,
// so re-running a request can never produce duplicate rows or a partial
// candidate set.
func (r *RecommendationRepository) UpsertRecommendations(
	ctx context.Context,
	userID, date, slot string,
	rows []outbound.RecommendationRow,
) error {
	if len(rows) == 0 {
		return nil
	}

	models := make([]RecommendationModel, 0, len(rows))
	for _, row := range rows {
		models = append(models, RecommendationModel{
			UserID:       userID,
			Date:         date,
			Slot:         slot,
			RecType:      row.Type,
			FoodID:       row.FoodID,
			FoodName:     row.FoodName,
			Score:        row.Score,
			ClusterLabel: row.ClusterLabel,
			Explanation:  row.Explanation,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "date"}, {Name: "slot"}, {Name: "rec_type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"food_id", "food_name", "score", "cluster_label", "explanation", "updated_at",
			}),
		}).Create(&models).Error
	})
}
