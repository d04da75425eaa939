package repositories

import (
	"context"
	"errors"
	"time"

	"fraternitybase/registry/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// MemberRepository handles members table operations
type MemberRepository struct {
	db *gormlib.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gormlib.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *MemberRepository) WithTx(tx *gormlib.DB) *MemberRepository {
	return &MemberRepository{db: tx}
}

// FindByEmailHash returns the member owning an email hash, or nil
func (r *MemberRepository) FindByEmailHash(ctx context.Context, emailHash string) (*gorm.Member, error) {
	var member gorm.Member

	err := r.db.WithContext(ctx).
		Where("email_hash = ?", emailHash).
		First(&member).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &member, nil
}

// FindByNameHash matches within one chapter only; names are not unique
// across the organization. The oldest record wins when several share a name.
func (r *MemberRepository) FindByNameHash(ctx context.Context, chapterID string, nameHash string) (*gorm.Member, error) {
	var member gorm.Member

	err := r.db.WithContext(ctx).
		Where("chapter_id = ? AND name_hash = ?", chapterID, nameHash).
		Order("created_at ASC").
		First(&member).Error

	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &member, nil
}

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, member *gorm.Member) error {
	return r.db.WithContext(ctx).Omit("Chapter").Create(member).Error
}

// UpdateFields writes only the given columns and bumps updated_at
func (r *MemberRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()

	return r.db.WithContext(ctx).
		Model(&gorm.Member{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// CountByChapter returns the number of members in a chapter
func (r *MemberRepository) CountByChapter(ctx context.Context, chapterID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gorm.Member{}).
		Where("chapter_id = ?", chapterID).
		Count(&count).Error
	return count, err
}

// Count returns total number of members
func (r *MemberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gorm.Member{}).Count(&count).Error
	return count, err
}
