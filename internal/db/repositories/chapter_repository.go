package repositories

import (
	"context"
	"errors"

	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ChapterRepository handles chapters table operations
type ChapterRepository struct {
	db *gormlib.DB
}

// NewChapterRepository creates a new chapter repository
func NewChapterRepository(db *gormlib.DB) *ChapterRepository {
	return &ChapterRepository{db: db}
}

// FindByName finds a chapter of an organization by exact name
func (r *ChapterRepository) FindByName(ctx context.Context, organization string, name string) (*gorm.Chapter, error) {
	var chapter gorm.Chapter

	err := r.db.WithContext(ctx).
		Where("organization = ? AND name = ?", organization, name).
		First(&chapter).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &chapter, nil
}

// FindByID finds a chapter by id
func (r *ChapterRepository) FindByID(ctx context.Context, id string) (*gorm.Chapter, error) {
	var chapter gorm.Chapter

	err := r.db.WithContext(ctx).First(&chapter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &chapter, nil
}

// FindOrCreate returns the chapter, inserting it when absent. A unique
// violation means another run created it first, so the existing row is
// fetched instead. created reports whether this call inserted the row.
func (r *ChapterRepository) FindOrCreate(ctx context.Context, organization string, name string) (chapter *gorm.Chapter, created bool, err error) {
	chapter, err = r.FindByName(ctx, organization, name)
	if err != nil || chapter != nil {
		return chapter, false, err
	}

	chapter = &gorm.Chapter{
		Organization: organization,
		Name:         name,
		Status:       constants.ChapterStatusActive,
	}
	err = r.db.WithContext(ctx).Omit("University").Create(chapter).Error
	if err == nil {
		return chapter, true, nil
	}
	if !errors.Is(err, gormlib.ErrDuplicatedKey) {
		return nil, false, err
	}

	chapter, err = r.FindByName(ctx, organization, name)
	if err != nil {
		return nil, false, err
	}
	if chapter == nil {
		return nil, false, errors.New("chapter conflict reported but no row found")
	}
	return chapter, false, nil
}

// SetUniversity links a chapter to its university
func (r *ChapterRepository) SetUniversity(ctx context.Context, chapterID string, universityID string) error {
	res := r.db.WithContext(ctx).
		Model(&gorm.Chapter{}).
		Where("id = ?", chapterID).
		Update("university_id", universityID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return constants.ErrNotFound
	}
	return nil
}
