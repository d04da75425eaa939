package gorm

import (
	"time"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// Member is one roster entry. PII columns hold cipher envelopes, never
// plaintext; the *_hash columns exist only for equality matching.
type Member struct {
	ID string `gorm:"column:id;primaryKey;type:uuid"`

	FirstName        []byte `gorm:"column:first_name_encrypted"`
	LastName         []byte `gorm:"column:last_name_encrypted"`
	Email            []byte `gorm:"column:email_encrypted"`
	CellPhone        []byte `gorm:"column:cell_phone_encrypted"`
	Birthday         []byte `gorm:"column:birthday_encrypted"`
	StreetAddress    []byte `gorm:"column:street_address_encrypted"`
	City             []byte `gorm:"column:city_encrypted"`
	ZipCode          []byte `gorm:"column:zip_code_encrypted"`
	AltStreetAddress []byte `gorm:"column:alt_street_address_encrypted"`
	AltCity          []byte `gorm:"column:alt_city_encrypted"`
	AltZipCode       []byte `gorm:"column:alt_zip_code_encrypted"`

	State             string     `gorm:"column:state;type:varchar(2)"`
	AltState          string     `gorm:"column:alt_state;type:varchar(2)"`
	MemberType        string     `gorm:"column:member_type;type:varchar(20);not null"`
	Status            string     `gorm:"column:status;type:varchar(20);not null;index"`
	GraduationYear    *int       `gorm:"column:graduation_year"`
	InitiationDate    *time.Time `gorm:"column:initiation_date;type:date"`
	InitiatingChapter string     `gorm:"column:initiating_chapter;type:varchar(100)"`

	EmailHash *string `gorm:"column:email_hash;type:varchar(64);uniqueIndex"`
	PhoneHash *string `gorm:"column:phone_hash;type:varchar(64);index"`
	NameHash  *string `gorm:"column:name_hash;type:varchar(64);index"`

	ChapterID     *string    `gorm:"column:chapter_id;type:uuid;index"`
	DataSource    string     `gorm:"column:data_source;type:varchar(50)"`
	ImportBatchID *string    `gorm:"column:import_batch_id;type:uuid"`
	LastVerified  *time.Time `gorm:"column:last_verified;type:date"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Chapter *Chapter `gorm:"foreignKey:ChapterID"`
}

// TableName specifies the table name for GORM
func (Member) TableName() string {
	return "members"
}

func (m *Member) BeforeCreate(tx *gormlib.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
