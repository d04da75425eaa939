package constants

// Row outcomes, used as metric labels and in log lines.
const (
	OutcomeImported = "imported"
	OutcomeUpdated  = "updated"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"

	ExportOutcomeExported = "exported"
	ExportOutcomeSkipped  = "skipped"
)
