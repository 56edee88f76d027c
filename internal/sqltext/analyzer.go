// Package sqltext classifies Athena SQL text into coarse patterns and
// extracts structured features. It is deliberately heuristic string
// matching, not a parser: query logs routinely contain truncated or
// malformed SQL that a grammar would choke on.
package sqltext

import (
	"fmt"
	"regexp"
	"strings"

	"athenalens/internal/model"
)

// Pattern labels produced by ExtractPattern for text that matches no
// statement-specific rule.
const (
	PatternEmpty        = "EMPTY"
	PatternUnload       = "UNLOAD"
	PatternInsertCreate = "INSERT/CREATE"
	PatternSelect       = "SELECT"
	PatternOther        = "OTHER"
)

// InsertLabel maps a table-name substring (matched case-insensitively) to a
// dedicated pattern label for INSERT/CREATE statements.
type InsertLabel struct {
	Match string
	Label string
}

// Heuristics holds the deployment-specific table names the analyzer looks
// for. The defaults match the workload this tool was built against; swap
// them per deployment instead of editing match code.
type Heuristics struct {
	InsertLabels   []InsertLabel
	SourceTables   []string
	PublisherArray []string // markers for array/split publisher filters
}

// DefaultHeuristics returns the heuristic set for the original deployment.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		InsertLabels: []InsertLabel{
			{Match: "PARQUET__ALL_CRM_USERS", Label: "INSERT: parquet__all_crm_users"},
			{Match: "PARQUET__HAS_STREAM", Label: "INSERT: parquet__has_stream"},
		},
		SourceTables: []string{
			"distinct_users_with_publishers_daily",
			"parquet_dmp_raw_v3",
		},
		PublisherArray: []string{"ARRAY_OF_APPIDS", "SPLIT("},
	}
}

var (
	fromTableRe = regexp.MustCompile(`FROM\s+([A-Za-z0-9_.]+)`)
	dateRe      = regexp.MustCompile(`DATE\('(\d{4}-\d{2}-\d{2})'\)`)
	inListRe    = regexp.MustCompile(`IN\s*\(([^)]+)\)`)
)

// Analyzer performs pattern and feature extraction with a fixed heuristic
// set. The zero value is not usable; construct with New.
type Analyzer struct {
	h Heuristics
}

// New returns an Analyzer using the given heuristics.
func New(h Heuristics) *Analyzer {
	return &Analyzer{h: h}
}

// Default returns an Analyzer with DefaultHeuristics.
func Default() *Analyzer {
	return New(DefaultHeuristics())
}

// ExtractPattern maps query text to a coarse structural label. Every input
// maps to exactly one label; the first matching rule wins, so an
// INSERT...SELECT is labeled as an INSERT (the write target is the cost
// driver for such statements).
func (a *Analyzer) ExtractPattern(text string) string {
	if text == "" {
		return PatternEmpty
	}
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(upper, "UNLOAD"):
		return PatternUnload

	case strings.Contains(upper, "INSERT") || strings.Contains(upper, "CREATE TABLE"):
		for _, il := range a.h.InsertLabels {
			if strings.Contains(upper, strings.ToUpper(il.Match)) {
				return il.Label
			}
		}
		return PatternInsertCreate

	case strings.Contains(upper, "SELECT") && strings.Contains(upper, "FROM"):
		if m := fromTableRe.FindStringSubmatch(upper); m != nil {
			return fmt.Sprintf("SELECT from %s", m[1])
		}
		return PatternSelect

	default:
		return PatternOther
	}
}

// ExtractFeatures runs every feature heuristic over the query text. The
// checks are independent and non-exclusive; a feature that did not fire is
// left at its zero value.
func (a *Analyzer) ExtractFeatures(text string) model.QueryFeatures {
	var f model.QueryFeatures
	if text == "" {
		return f
	}
	upper := strings.ToUpper(text)

	// Date literals: first and last occurrence define the range.
	if dates := dateRe.FindAllStringSubmatch(upper, -1); len(dates) > 0 {
		first := dates[0][1]
		last := dates[len(dates)-1][1]
		f.StartDate = first
		f.EndDate = last
		if len(dates) >= 2 {
			f.DateRange = first + " to " + last
		} else {
			f.DateRange = first
		}
	}

	if strings.Contains(upper, "CROSS JOIN UNNEST") {
		f.HasCrossJoinUnnest = true
		if strings.Contains(upper, "SET_PUBLISHERS") {
			f.UsesSetPublishers = true
		}
	}

	for _, table := range a.h.SourceTables {
		if strings.Contains(upper, strings.ToUpper(table)) {
			f.SourceTable = strings.ToLower(table)
			break
		}
	}

	if strings.Contains(upper, "LIKE '%US%'") || strings.Contains(upper, "LIKE 'US%'") {
		f.CountryFilter = "US"
	}

	if strings.Contains(upper, "LOWER(PUBLISHER) IN") {
		f.PublisherFilterType = "IN list"
		if m := inListRe.FindStringSubmatch(upper); m != nil {
			count := 0
			for _, p := range strings.Split(m[1], ",") {
				if strings.TrimSpace(p) != "" {
					count++
				}
			}
			f.PublisherCount = count
		}
	} else {
		for _, marker := range a.h.PublisherArray {
			if strings.Contains(upper, strings.ToUpper(marker)) {
				f.PublisherFilterType = "array/split"
				break
			}
		}
	}

	f.QueryLength = len(upper)
	return f
}
