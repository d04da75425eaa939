package entities

import "database/sql"

// ExportMemberRow is one row of the export join. Encrypted columns stay
// ciphertext until the exporter decides which ones it needs.
type ExportMemberRow struct {
	ID              string          `db:"id"`
	FirstName       []byte          `db:"first_name_encrypted"`
	LastName        []byte          `db:"last_name_encrypted"`
	Birthday        []byte          `db:"birthday_encrypted"`
	City            []byte          `db:"city_encrypted"`
	State           sql.NullString  `db:"state"`
	AltState        sql.NullString  `db:"alt_state"`
	MemberType      string          `db:"member_type"`
	Status          string          `db:"status"`
	ChapterID       sql.NullString  `db:"chapter_id"`
	ChapterName     sql.NullString  `db:"chapter_name"`
	UniversityName  sql.NullString  `db:"university_name"`
	UniversityState sql.NullString  `db:"university_state"`
	UniversityLat   sql.NullFloat64 `db:"university_lat"`
	UniversityLng   sql.NullFloat64 `db:"university_lng"`
}
