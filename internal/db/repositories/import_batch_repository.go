package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ImportBatchRepo is the import ledger: one row per import run
type ImportBatchRepo struct {
	db *gormlib.DB
}

// NewImportBatchRepo creates a new import batch repository
func NewImportBatchRepo(db *gormlib.DB) *ImportBatchRepo {
	return &ImportBatchRepo{db: db}
}

// Open records the start of a run. The batch stays in processing until
// Finalize is called.
func (r *ImportBatchRepo) Open(ctx context.Context, chapterID, fileName, fileHash string) (*gorm.ImportBatch, error) {
	batch := &gorm.ImportBatch{
		ChapterID:       chapterID,
		FileName:        fileName,
		FileHash:        fileHash,
		ImportType:      constants.ImportTypeFullRoster,
		Status:          string(constants.BatchStatusProcessing),
		ImportStartedAt: time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Omit("Chapter").Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

// Finalize writes the final counters exactly once. A batch that is no
// longer processing is rejected.
func (r *ImportBatchRepo) Finalize(ctx context.Context, batch *gorm.ImportBatch) error {
	if batch.ImportCompletedAt == nil {
		now := time.Now().UTC()
		batch.ImportCompletedAt = &now
	}

	res := r.db.WithContext(ctx).
		Model(&gorm.ImportBatch{}).
		Where("id = ? AND status = ?", batch.ID, string(constants.BatchStatusProcessing)).
		Updates(map[string]interface{}{
			"total_rows":          batch.TotalRows,
			"imported_count":      batch.ImportedCount,
			"updated_count":       batch.UpdatedCount,
			"skipped_count":       batch.SkippedCount,
			"error_count":         batch.ErrorCount,
			"error_log":           batch.ErrorLog,
			"status":              batch.Status,
			"import_completed_at": batch.ImportCompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("batch %s is not open", batch.ID)
	}
	return nil
}

// FindByID returns a batch, or nil
func (r *ImportBatchRepo) FindByID(ctx context.Context, id string) (*gorm.ImportBatch, error) {
	var batch gorm.ImportBatch

	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &batch, nil
}

// ListByChapter returns the latest batches for a chapter, newest first
func (r *ImportBatchRepo) ListByChapter(ctx context.Context, chapterID string, limit int) ([]gorm.ImportBatch, error) {
	var batches []gorm.ImportBatch

	q := r.db.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("import_started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// GetLastBatchForChapter retrieves the most recent batch, or nil
func (r *ImportBatchRepo) GetLastBatchForChapter(ctx context.Context, chapterID string) (*gorm.ImportBatch, error) {
	batches, err := r.ListByChapter(ctx, chapterID, 1)
	if err != nil || len(batches) == 0 {
		return nil, err
	}
	return &batches[0], nil
}
