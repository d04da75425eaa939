package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// ImportBatch is the ledger entry for one roster import run
type ImportBatch struct {
	ID                string     `gorm:"column:id;primaryKey;type:uuid"`
	ChapterID         string     `gorm:"column:chapter_id;type:uuid;not null;index"`
	FileName          string     `gorm:"column:file_name;type:varchar(255)"`
	FileHash          string     `gorm:"column:file_hash;type:varchar(64)"`
	ImportType        string     `gorm:"column:import_type;type:varchar(50);not null"`
	TotalRows         int        `gorm:"column:total_rows;default:0"`
	ImportedCount     int        `gorm:"column:imported_count;default:0"`
	UpdatedCount      int        `gorm:"column:updated_count;default:0"`
	SkippedCount      int        `gorm:"column:skipped_count;default:0"`
	ErrorCount        int        `gorm:"column:error_count;default:0"`
	ErrorLog          string     `gorm:"column:error_log;type:text"`
	Status            string     `gorm:"column:status;type:varchar(30);not null"`
	ImportStartedAt   time.Time  `gorm:"column:import_started_at;not null"`
	ImportCompletedAt *time.Time `gorm:"column:import_completed_at"`

	// Relationships
	Chapter *Chapter `gorm:"foreignKey:ChapterID"`
}

// TableName specifies the table name for GORM
func (ImportBatch) TableName() string {
	return "import_batches"
}

func (b *ImportBatch) BeforeCreate(tx *gormlib.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
