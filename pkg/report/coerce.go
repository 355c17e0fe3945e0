package report

import (
	"strconv"
	"strings"
)

// CoerceAge parses an extracted age string into an integer. Anything
// that is not a pure run of decimal digits (including the empty string)
// degrades to nil, never an error.
func CoerceAge(age string) *int {
	if age == "" {
		return nil
	}
	for _, r := range age {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(age)
	if err != nil {
		return nil
	}
	return &n
}

// CoerceGender maps an extracted gender string onto the stored
// enumeration. Unrecognized values degrade to Unknown.
func CoerceGender(gender string) Gender {
	switch strings.ToLower(gender) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderUnknown
	}
}
