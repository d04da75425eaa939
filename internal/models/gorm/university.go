package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// University is reference data with geographic coordinates
type University struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	Name      string    `gorm:"column:name;type:varchar(200);not null;uniqueIndex"`
	State     string    `gorm:"column:state;type:varchar(2)"`
	City      string    `gorm:"column:city;type:varchar(100)"`
	Latitude  float64   `gorm:"column:latitude;type:numeric(10,6);not null"`
	Longitude float64   `gorm:"column:longitude;type:numeric(10,6);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (University) TableName() string {
	return "universities"
}

func (u *University) BeforeCreate(tx *gormlib.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
