package constants

// Roster column headers as exported by the national membership portal.
const (
	ColFirstName         = "First Name"
	ColLastName          = "Last Name"
	ColEmail             = "Email"
	ColCellPhone         = "Cell Phone"
	ColBirthday          = "Birthday"
	ColMailingAddress    = "Mailing Address"
	ColAltAddress        = "Other/School/Work Address"
	ColMemberType        = "Member Type"
	ColStatus            = "Status"
	ColInitiationDate    = "Initiation Date"
	ColInitiatingChapter = "Initiating Chapter"
	ColGraduationYear    = "Graduation Year"
)

// RosterColumns lists every column the importer understands, in portal order.
var RosterColumns = []string{
	ColFirstName, ColLastName, ColEmail, ColCellPhone, ColBirthday,
	ColMailingAddress, ColAltAddress, ColMemberType, ColStatus,
	ColInitiationDate, ColInitiatingChapter, ColGraduationYear,
}

// PIIColumns are redacted before a row is written to the batch error log.
var PIIColumns = map[string]struct{}{
	ColFirstName:      {},
	ColLastName:       {},
	ColEmail:          {},
	ColCellPhone:      {},
	ColBirthday:       {},
	ColMailingAddress: {},
	ColAltAddress:     {},
}

type (
	MemberType   string
	MemberStatus string
	BatchStatus  string
)

const (
	MemberTypeUndergrad MemberType = "Undergrad"
	MemberTypeAlumni    MemberType = "Alumni"

	MemberStatusActive   MemberStatus = "Active"
	MemberStatusAlumni   MemberStatus = "Alumni"
	MemberStatusInactive MemberStatus = "Inactive"

	BatchStatusProcessing          BatchStatus = "processing"
	BatchStatusCompleted           BatchStatus = "completed"
	BatchStatusCompletedWithErrors BatchStatus = "completed_with_errors"
)

const (
	DataSourceRosterImport = "roster_import"
	ImportTypeFullRoster   = "full_roster"
	ChapterStatusActive    = "active"
	DefaultOrganization    = "Sigma Chi"
	UnknownValue           = "Unknown"
	RedactedValue          = "[REDACTED]"
	ProgressLogInterval    = 100
)

// DateLayouts are tried in order; the first layout that parses wins.
// Month and day accept one or two digits.
var DateLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"2/1/2006",
	"1-2-2006",
	"January 2, 2006",
}

// CanonicalDateLayout is how parsed birthdays are stored before encryption.
const CanonicalDateLayout = "2006-01-02"
