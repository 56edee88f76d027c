package sqltext

import "regexp"

// Two executions of the same scheduled query usually differ only in their
// date parameters. Normalize masks those so both executions collapse to one
// key for frequency and drift comparison.
const normalizePrefixLen = 500

var (
	dateLiteralRe  = regexp.MustCompile(`DATE\('\d{4}-\d{2}-\d{2}'\)`)
	yearLiteralRe  = regexp.MustCompile(`'\d{4}'`)
	monthLiteralRe = regexp.MustCompile(`'\d{1,2}'`)
	numLiteralRe   = regexp.MustCompile(`'\d+'`)
)

// Normalize masks date-shaped literals in the query text and truncates the
// result to a comparison prefix. The masking keys on literal shape (any
// 4-digit quoted number is a year, any 1-2 digit one a month) rather than
// specific values, and is idempotent: a second pass finds nothing to mask.
func (a *Analyzer) Normalize(text string) string {
	if text == "" {
		return ""
	}

	n := dateLiteralRe.ReplaceAllString(text, "DATE('YYYY-MM-DD')")
	n = yearLiteralRe.ReplaceAllString(n, "'YYYY'")
	n = monthLiteralRe.ReplaceAllString(n, "'MM'")
	n = numLiteralRe.ReplaceAllString(n, "'DD'")

	if len(n) > normalizePrefixLen {
		n = n[:normalizePrefixLen]
	}
	return n
}
