package constants

const (
	// ExportMembersQuery uses ? placeholders; callers Rebind for the active driver.
	ExportMembersQuery = `
	SELECT
		m.id,
		m.first_name_encrypted,
		m.last_name_encrypted,
		m.birthday_encrypted,
		m.city_encrypted,
		m.state,
		m.alt_state,
		m.member_type,
		m.status,
		c.id AS chapter_id,
		c.name AS chapter_name,
		u.name AS university_name,
		u.state AS university_state,
		u.latitude AS university_lat,
		u.longitude AS university_lng
	FROM members m
	LEFT JOIN chapters c ON m.chapter_id = c.id
	LEFT JOIN universities u ON c.university_id = u.id
	WHERE m.status IN (?, ?)
	ORDER BY c.name, m.created_at
	`
)
