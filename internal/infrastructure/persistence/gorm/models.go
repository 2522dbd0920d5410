// Package gorm provides GORM model definitions and repository
// implementations for the engine's read and write contracts.
package gorm

import (
	"time"
)

// UserProfileModel stores a user's declared preference profile.
type UserProfileModel struct {
	UserID string `gorm:"type:varchar(64);primaryKey"`
	// Purpose keeps the 1-indexed external representation: 1=diet,
	// 2=maintain, 3=bulk.
	Purpose              int     `gorm:"default:2"`
	RecommendedCalories  float64 `gorm:"default:0"`
	DeclaredCarbRatio    float64 `gorm:"default:0"`
	DeclaredProteinRatio float64 `gorm:"default:0"`
	DeclaredFatRatio     float64 `gorm:"default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName overrides the GORM default
func (UserProfileModel) TableName() string { return "user_profiles" }

// MealLedgerModel is one consumed-meal entry in the intake ledger.
type MealLedgerModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	UserID   string `gorm:"type:varchar(64);not null;index:idx_ledger_user_date"`
	Date     string `gorm:"type:char(8);not null;index:idx_ledger_user_date"` // YYYYMMDD
	Kcal     float64
	CarbG    float64
	ProteinG float64
	FatG     float64
	CreatedAt time.Time
}

// TableName overrides the GORM default
func (MealLedgerModel) TableName() string { return "meal_ledger" }

// FoodModel is one catalog food.
type FoodModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time
}

// TableName overrides the GORM default
func (FoodModel) TableName() string { return "foods" }

// RecommendationModel is one persisted candidate row, unique per
// (user, date, slot, type).
type RecommendationModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserID       string `gorm:"type:varchar(64);not null;uniqueIndex:idx_rec_key,priority:1"`
	Date         string `gorm:"type:char(8);not null;uniqueIndex:idx_rec_key,priority:2"`
	Slot         string `gorm:"type:char(1);not null;uniqueIndex:idx_rec_key,priority:3"`
	RecType      string `gorm:"type:varchar(8);not null;uniqueIndex:idx_rec_key,priority:4"`
	FoodID       int64
	FoodName     string `gorm:"type:varchar(255)"`
	Score        float64
	ClusterLabel string `gorm:"type:varchar(64)"`
	Explanation  string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the GORM default
func (RecommendationModel) TableName() string { return "recommendations" }
