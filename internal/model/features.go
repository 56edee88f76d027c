package model

// QueryFeatures is the structured attribute set extracted from one query's
// text. Fields are zero-valued when the corresponding heuristic did not
// fire; QueryLength is always populated for non-empty text.
type QueryFeatures struct {
	DateRange           string `json:"date_range,omitempty"`
	StartDate           string `json:"start_date,omitempty"`
	EndDate             string `json:"end_date,omitempty"`
	HasCrossJoinUnnest  bool   `json:"has_cross_join_unnest,omitempty"`
	UsesSetPublishers   bool   `json:"uses_set_publishers,omitempty"`
	SourceTable         string `json:"source_table,omitempty"`
	CountryFilter       string `json:"country_filter,omitempty"`
	PublisherFilterType string `json:"publisher_filter_type,omitempty"`
	PublisherCount      int    `json:"publisher_count,omitempty"`
	QueryLength         int    `json:"query_length"`
}
