package netsuite

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EscapeLiteral escapes a value for use inside a single-quoted SuiteQL literal
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Quote returns s as a single-quoted SuiteQL literal
func Quote(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}

// QuoteList returns the values as a comma-separated list of quoted literals
func QuoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = Quote(v)
	}
	return strings.Join(quoted, ", ")
}

// normalizeText trims s and converts it to Unicode NFC so that composed and
// decomposed spellings of the same name compare equal in the ERP
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// chunk splits values into slices of at most size elements
func chunk(values []string, size int) [][]string {
	if size <= 0 || len(values) <= size {
		if len(values) == 0 {
			return nil
		}
		return [][]string{values}
	}
	var out [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[start:end])
	}
	return out
}

// uniqueNonEmpty returns the distinct non-empty values in first-seen order
func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
