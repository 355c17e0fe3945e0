package extract

import (
	"regexp"
	"strings"

	"github.com/reportlens-ai/analyzer/pkg/common/models"
)

var digitRun = regexp.MustCompile(`\d+`)

// ageFallbackLimit caps the colon-trailing fallback value for age lines
// that carry no digits.
const ageFallbackLimit = 10

// FieldExtractor recovers patient identity attributes from loosely
// structured report text by keyword scanning. It never fails: absent or
// malformed fields come back as empty strings.
type FieldExtractor struct {
	keywords Keywords
}

func NewFieldExtractor(kw Keywords) *FieldExtractor {
	return &FieldExtractor{keywords: kw}
}

// Extract scans text line by line. A line is attributed to at most one
// field, tested in priority order name, age, gender; the last matching
// line for a keyword determines the final value.
func (f *FieldExtractor) Extract(text string) models.PatientFields {
	var fields models.PatientFields

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(line, f.keywords.Name):
			fields.Name = afterLastColon(line)
		case strings.Contains(line, f.keywords.Age):
			if run := digitRun.FindString(line); run != "" {
				fields.Age = run
			} else {
				fields.Age = truncate(afterLastColon(line), ageFallbackLimit)
			}
		case strings.Contains(line, f.keywords.Gender):
			fields.Gender = afterLastColon(line)
		}
	}

	return fields
}

// afterLastColon returns the trimmed segment after the last colon, or
// the whole trimmed line when there is no colon.
func afterLastColon(line string) string {
	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		line = line[idx+1:]
	}
	return strings.TrimSpace(line)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
