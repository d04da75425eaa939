package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fraternitybase/registry/internal/constants"
	"fraternitybase/registry/internal/roster"
)

func parseGraduationYear(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid graduation year %q", value)
	}
	return &year, nil
}

// redactRow copies a row for the error log with PII columns masked.
func redactRow(row roster.Row) map[string]string {
	out := make(map[string]string, len(row))
	for column, value := range row {
		if _, pii := constants.PIIColumns[column]; pii && value != "" {
			out[column] = constants.RedactedValue
			continue
		}
		out[column] = value
	}
	return out
}

func fullName(row roster.Row) string {
	return strings.TrimSpace(row.Get(constants.ColFirstName) + " " + row.Get(constants.ColLastName))
}

func sameHash(stored, candidate *string) bool {
	if stored == nil || candidate == nil {
		return stored == candidate
	}
	return *stored == *candidate
}

func runDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// unknownColumns lists headers the importer does not read, in file order.
func unknownColumns(headers []string) []string {
	known := make(map[string]struct{}, len(constants.RosterColumns))
	for _, column := range constants.RosterColumns {
		known[column] = struct{}{}
	}

	var unknown []string
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := known[h]; !ok {
			unknown = append(unknown, h)
		}
	}
	return unknown
}
