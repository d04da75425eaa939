package dtos

// DerivedView is the travel map export document
type DerivedView struct {
	Members      []ExportMember     `json:"members"`
	Routes       []ExportRoute      `json:"routes"`
	Universities []ExportUniversity `json:"universities"`
}

// ExportMember carries no database id; ID is the position in the export.
type ExportMember struct {
	ID              int             `json:"id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Chapter         string          `json:"chapter"`
	Age             *int            `json:"age"`
	Birthday        *string         `json:"birthday"`
	BirthdayToday   bool            `json:"birthday_today"`
	CurrentLocation CurrentLocation `json:"current_location"`
	HomeLocation    HomeLocation    `json:"home_location"`
}

// CurrentLocation is where a member is now. Approximate marks alumni, whose
// coordinates are their university's because career location is not tracked.
type CurrentLocation struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Approximate bool    `json:"approximate"`
}

type HomeLocation struct {
	City  string  `json:"city"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

type ExportRoute struct {
	MemberID  int     `json:"member_id"`
	FromLat   float64 `json:"from_lat"`
	FromLng   float64 `json:"from_lng"`
	FromState string  `json:"from_state"`
	ToLat     float64 `json:"to_lat"`
	ToLng     float64 `json:"to_lng"`
	ToState   string  `json:"to_state"`
	Age       *int    `json:"age"`
}

type ExportUniversity struct {
	Name  string  `json:"name"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// ExportStats summarizes one export run
type ExportStats struct {
	Total           int `json:"total"`
	Exported        int `json:"exported"`
	Skipped         int `json:"skipped"`
	DecryptFailures int `json:"decrypt_failures"`
	Routes          int `json:"routes"`
	Universities    int `json:"universities"`
}
