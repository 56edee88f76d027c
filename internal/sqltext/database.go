package sqltext

import (
	"regexp"
	"strings"
)

// Minimum identifier length for a credible database name; single characters
// are almost always aliases.
const minDBNameLen = 2

// Keywords that the db.table regexes can capture by accident, e.g. when a
// FROM clause wraps a subquery or the text is truncated mid-statement.
var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "JOIN": {}, "INNER": {},
	"LEFT": {}, "RIGHT": {}, "FULL": {}, "OUTER": {}, "ON": {},
	"GROUP": {}, "ORDER": {}, "HAVING": {}, "INSERT": {}, "INTO": {},
	"UPDATE": {}, "DELETE": {}, "CREATE": {}, "TABLE": {}, "EXTERNAL": {},
	"UNION": {}, "EXCEPT": {}, "INTERSECT": {}, "WITH": {}, "AS": {},
	"CASE": {}, "WHEN": {}, "IF": {}, "NOT": {}, "EXISTS": {},
	"SET": {}, "VALUES": {}, "ALTER": {}, "DROP": {}, "UNLOAD": {},
	"PARTITION": {}, "PARTITIONED": {}, "ROW": {}, "FORMAT": {},
	"STORED": {}, "LOCATION": {}, "TBLPROPERTIES": {},
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Contexts that introduce a db.table reference, in priority order. Each
// prefix is paired with both the unquoted and the backtick-quoted form; the
// first capture group is the database identifier.
var dbContextRes = buildDBContexts()

func buildDBContexts() []*regexp.Regexp {
	const unquoted = `\b([A-Za-z0-9_]+)\.([A-Za-z0-9_]+)(?:\.[A-Za-z0-9_]+)?`
	const quoted = "`([^`]+)`\\.`([^`]+)`(?:\\.`[^`]+`)?"

	prefixes := []string{
		`FROM\s+`,
		`INSERT\s+INTO\s+`,
		`CREATE\s+TABLE\s+`,
		`CREATE\s+EXTERNAL\s+TABLE\s+`,
		`(?:INNER\s+|LEFT\s+|RIGHT\s+|FULL\s+)?JOIN\s+`,
		`UPDATE\s+`,
		`DELETE\s+FROM\s+`,
	}

	var res []*regexp.Regexp
	for _, prefix := range prefixes {
		res = append(res,
			regexp.MustCompile(`(?i)`+prefix+unquoted),
			regexp.MustCompile(`(?i)`+prefix+quoted),
		)
	}
	return res
}

// PrimaryDatabase extracts the first credible database identifier from a
// db.table (or db.schema.table) reference in the query text, searching
// FROM, INSERT INTO, CREATE [EXTERNAL] TABLE, JOIN, UPDATE and DELETE FROM
// contexts in that order. Returns "" when nothing survives the filters.
func (a *Analyzer) PrimaryDatabase(text string) string {
	if text == "" {
		return ""
	}

	for _, re := range dbContextRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		db := strings.Trim(m[1], "`")
		if len(db) < minDBNameLen {
			continue
		}
		if isDigits(db) {
			continue
		}
		if _, kw := sqlKeywords[strings.ToUpper(db)]; kw {
			continue
		}
		if !identifierRe.MatchString(db) {
			continue
		}
		return db
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
