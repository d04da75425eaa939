// Package address splits free-text roster addresses into postal components.
package address

import "strings"

// Address is a parsed postal address. Every field is empty when the input
// could not be split into enough segments.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

const (
	minSegments = 4
	zipLength   = 5
)

// Parse maps "street, city, state, zip[, country...]" positionally. Fewer
// than four segments yields the zero Address.
func Parse(text string) Address {
	if strings.TrimSpace(text) == "" {
		return Address{}
	}

	parts := strings.Split(text, ",")
	if len(parts) < minSegments {
		return Address{}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	zip := parts[3]
	if len(zip) > zipLength {
		zip = zip[:zipLength]
	}

	return Address{
		Street: parts[0],
		City:   parts[1],
		State:  NormalizeState(parts[2]),
		Zip:    zip,
	}
}

// IsZero reports whether no component was parsed.
func (a Address) IsZero() bool {
	return a == Address{}
}
