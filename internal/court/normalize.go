package court

import "strings"

// Normalize trims whitespace from every field and strips the trailing "(pdf)"
// marker some portals append to the date cell. Case identifiers are compared
// as exact trimmed strings, so this is the only normalization applied.
func (r Row) Normalize() Row {
	r.Court = strings.TrimSpace(r.Court)
	r.Bench = strings.TrimSpace(r.Bench)
	r.CaseNo = strings.TrimSpace(strings.ReplaceAll(r.CaseNo, " ", " "))
	r.Party = strings.TrimSpace(strings.ReplaceAll(r.Party, " ", " "))
	r.PDFLink = strings.TrimSpace(r.PDFLink)
	r.Date = CleanDate(r.Date)
	return r
}

// Complete reports whether the row carries the fields ingestion requires.
// Incomplete rows are dropped silently, not surfaced as errors.
func (r Row) Complete() bool {
	return r.CaseNo != "" && r.PDFLink != ""
}

// CleanDate strips the "(pdf)" suffix and anything after the first space,
// e.g. "01-01-2025 (pdf)" -> "01-01-2025".
func CleanDate(raw string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "(pdf)", ""))
	if i := strings.IndexByte(cleaned, ' '); i > 0 {
		cleaned = cleaned[:i]
	}
	return cleaned
}
