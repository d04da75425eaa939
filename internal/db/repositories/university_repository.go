package repositories

import (
	"context"
	"errors"

	"fraternitybase/registry/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UniversityRepository handles universities table operations
type UniversityRepository struct {
	db *gormlib.DB
}

// NewUniversityRepository creates a new university repository
func NewUniversityRepository(db *gormlib.DB) *UniversityRepository {
	return &UniversityRepository{db: db}
}

// FindByName finds a university by name (case-insensitive)
func (r *UniversityRepository) FindByName(ctx context.Context, name string) (*gorm.University, error) {
	var university gorm.University

	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&university).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &university, nil
}

// Upsert inserts a university or refreshes its location
// ON CONFLICT (name) DO UPDATE
func (r *UniversityRepository) Upsert(ctx context.Context, university *gorm.University) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "city", "latitude", "longitude", "updated_at"}),
		}).
		Create(university).Error
}

// BatchUpsert upserts multiple universities
func (r *UniversityRepository) BatchUpsert(ctx context.Context, universities []gorm.University) error {
	if len(universities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "city", "latitude", "longitude", "updated_at"}),
		}).
		CreateInBatches(universities, 100).Error
}

// Count returns total number of universities
func (r *UniversityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gorm.University{}).Count(&count).Error
	return count, err
}
