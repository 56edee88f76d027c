package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"athenalens/internal/analysis"
	"athenalens/internal/csvio"
	"athenalens/internal/model"
)

const (
	toolFetchQueries  = "fetch_athena_queries"
	toolAnalyzeCost   = "analyze_cost_increase"
	toolCompareCostly = "compare_expensive_queries"
)

// RecordSource loads query records for a date range.
type RecordSource interface {
	QueryRange(ctx context.Context, start, end time.Time, workgroup string) ([]model.QueryRecord, error)
}

// Toolset exposes the analysis operations as assistant tools backed by a
// record source.
type Toolset struct {
	source    RecordSource
	opts      analysis.Options
	exportDir string
}

// NewToolset creates a toolset. exportDir receives CSV files written by the
// fetch tool; empty means the OS temp directory.
func NewToolset(source RecordSource, opts analysis.Options, exportDir string) *Toolset {
	if exportDir == "" {
		exportDir = os.TempDir()
	}
	return &Toolset{source: source, opts: opts, exportDir: exportDir}
}

func dateRangeSchema(extra map[string]any, required ...string) map[string]any {
	props := map[string]any{
		"start_date": map[string]any{
			"type":        "string",
			"description": "Start date in YYYY-MM-DD format",
			"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		},
		"end_date": map[string]any{
			"type":        "string",
			"description": "End date in YYYY-MM-DD format",
			"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		},
		"workgroup": map[string]any{
			"type":        "string",
			"description": "Optional workgroup filter",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definitions returns the tool schemas offered to the model.
func (t *Toolset) Definitions() []ToolDef {
	datePattern := map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	return []ToolDef{
		{
			Name:        toolFetchQueries,
			Description: "Export Athena query execution data for a date range to CSV. Use this when the user wants to fetch, export, or get query data.",
			InputSchema: dateRangeSchema(nil, "start_date", "end_date"),
		},
		{
			Name:        toolAnalyzeCost,
			Description: "Analyze cost increases by comparing a baseline period against a spike period. Use this when the user asks about cost spikes, cost increases, or wants to compare two time periods.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"baseline_start": datePattern,
					"baseline_end":   datePattern,
					"spike_start":    datePattern,
					"spike_end":      datePattern,
					"workgroup":      map[string]any{"type": "string", "description": "Optional workgroup filter"},
				},
				"required": []string{"baseline_start", "baseline_end", "spike_start", "spike_end"},
			},
		},
		{
			Name:        toolCompareCostly,
			Description: "Rank expensive queries and extract their patterns. Use this when the user asks about expensive queries, query patterns, or wants to analyze query performance.",
			InputSchema: dateRangeSchema(map[string]any{
				"query_pattern": map[string]any{"type": "string", "description": "Optional substring to filter query text (e.g. a table name)"},
				"query_id":      map[string]any{"type": "string", "description": "Optional query execution id to inspect"},
			}, "start_date", "end_date"),
		},
	}
}

type toolInput struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Workgroup     string `json:"workgroup"`
	BaselineStart string `json:"baseline_start"`
	BaselineEnd   string `json:"baseline_end"`
	SpikeStart    string `json:"spike_start"`
	SpikeEnd      string `json:"spike_end"`
	QueryPattern  string `json:"query_pattern"`
	QueryID       string `json:"query_id"`
	TargetDate    string `json:"target_date"`
}

// CallTool dispatches one tool invocation and returns a text result for the
// model. Operation failures are reported in the text, not as an error;
// only unknown tools and malformed input error out.
func (t *Toolset) CallTool(ctx context.Context, name string, input json.RawMessage) (string, error) {
	var in toolInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("decoding %s input: %w", name, err)
		}
	}

	switch name {
	case toolFetchQueries:
		res, err := t.FetchQueries(ctx, in.Workgroup, in.StartDate, in.EndDate)
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return fmt.Sprintf("Successfully fetched %d queries. File saved to %s", res.Count, res.Path), nil

	case toolAnalyzeCost:
		result, err := t.AnalyzeCostIncrease(ctx, analysis.CostAnalysisParams{
			BaselineStart: in.BaselineStart,
			BaselineEnd:   in.BaselineEnd,
			SpikeStart:    in.SpikeStart,
			SpikeEnd:      in.SpikeEnd,
			Workgroup:     in.Workgroup,
		})
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return summarizeAnalysis(result), nil

	case toolCompareCostly:
		result, err := t.CompareExpensiveQueries(ctx, analysis.ComparisonParams{
			StartDate:     in.StartDate,
			EndDate:       in.EndDate,
			Workgroup:     in.Workgroup,
			QueryPattern:  in.QueryPattern,
			QueryID:       in.QueryID,
			BaselineStart: in.BaselineStart,
			BaselineEnd:   in.BaselineEnd,
			TargetDate:    in.TargetDate,
		})
		if err != nil {
			return "Error: " + err.Error(), nil
		}
		return summarizeComparison(result), nil

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// FetchResult reports what the fetch tool exported.
type FetchResult struct {
	Count int
	Path  string
}

// FetchQueries exports the date range to a CSV file.
func (t *Toolset) FetchQueries(ctx context.Context, workgroup, startDate, endDate string) (*FetchResult, error) {
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q", startDate)
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q", endDate)
	}

	records, err := t.source.QueryRange(ctx, start, end, workgroup)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(t.exportDir, fmt.Sprintf("athena_queries_%s_%s.csv", startDate, endDate))
	if err := csvio.WriteFile(path, records); err != nil {
		return nil, err
	}
	return &FetchResult{Count: len(records), Path: path}, nil
}

// AnalyzeCostIncrease loads the covering range and runs the cost analysis.
func (t *Toolset) AnalyzeCostIncrease(ctx context.Context, p analysis.CostAnalysisParams) (*model.CostAnalysis, error) {
	records, err := t.loadCovering(ctx, p.Workgroup, p.BaselineStart, p.BaselineEnd, p.SpikeStart, p.SpikeEnd)
	if err != nil {
		return nil, err
	}
	return analysis.AnalyzeCostIncrease(records, p, t.opts)
}

// CompareExpensiveQueries loads the range and runs the query comparison.
func (t *Toolset) CompareExpensiveQueries(ctx context.Context, p analysis.ComparisonParams) (*model.QueryComparison, error) {
	records, err := t.loadCovering(ctx, p.Workgroup, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}
	return analysis.CompareExpensiveQueries(records, p, t.opts)
}

// loadCovering loads records spanning the min..max of the given dates.
// Unparseable dates load nothing here; the analysis layer reports them as
// validation errors with the right parameter name.
func (t *Toolset) loadCovering(ctx context.Context, workgroup string, dates ...string) ([]model.QueryRecord, error) {
	var min, max time.Time
	for _, d := range dates {
		parsed, err := model.ParseDate(d)
		if err != nil {
			continue
		}
		if min.IsZero() || parsed.Before(min) {
			min = parsed
		}
		if max.IsZero() || parsed.After(max) {
			max = parsed
		}
	}
	if min.IsZero() {
		return nil, nil
	}
	return t.source.QueryRange(ctx, min, max, workgroup)
}
