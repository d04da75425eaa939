package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// Chapter is one organizational unit. Names are unique per organization.
type Chapter struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	Organization string    `gorm:"column:organization;type:varchar(100);not null;uniqueIndex:idx_chapters_org_name"`
	Name         string    `gorm:"column:name;type:varchar(100);not null;uniqueIndex:idx_chapters_org_name"`
	Status       string    `gorm:"column:status;type:varchar(20);not null"`
	UniversityID *string   `gorm:"column:university_id;type:uuid"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	University *University `gorm:"foreignKey:UniversityID"`
}

// TableName specifies the table name for GORM
func (Chapter) TableName() string {
	return "chapters"
}

func (c *Chapter) BeforeCreate(tx *gormlib.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
