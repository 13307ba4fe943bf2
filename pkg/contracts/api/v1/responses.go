package api

import "time"

// Match is one ranked neighbour.
type Match struct {
	Rank   int            `json:"rank"`
	Index  int            `json:"index"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields,omitempty"`
}

// QueryRef identifies the query player of a result.
type QueryRef struct {
	Index    int    `json:"index"`
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// SimilarResponse is the ranked neighbourhood of one player.
type SimilarResponse struct {
	Query    QueryRef `json:"query"`
	Metric   string   `json:"metric"`
	Features []string `json:"features"`
	Count    int      `json:"count"`
	Matches  []Match  `json:"matches"`
}

// RankAllResponse holds the neighbourhood of every player, keyed by player id
// or by row index when the table has no id column.
type RankAllResponse struct {
	Metric  string             `json:"metric"`
	Count   int                `json:"count"`
	Keys    []string           `json:"keys"`
	Results map[string][]Match `json:"results"`
}

// FilterIssues reports filter fields the table could not evaluate.
type FilterIssues struct {
	MissingColumns []string `json:"missing_columns,omitempty"`
	InvalidValues  []string `json:"invalid_values,omitempty"`
}

// FilterResponse lists matching players.
type FilterResponse struct {
	Total   int              `json:"total"`
	Count   int              `json:"count"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Issues  *FilterIssues    `json:"issues,omitempty"`
}

// League describes one competition.
type League struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code,omitempty"`
	Continent   string `json:"continent"`
	Tier        string `json:"tier"`
	Type        string `json:"type"`
	Gender      string `json:"gender"`
	Major       bool   `json:"major"`
}

// LeaguesResponse lists leagues.
type LeaguesResponse struct {
	Count   int      `json:"count"`
	Leagues []League `json:"leagues"`
}

// HierarchyResponse groups leagues by continent and country.
type HierarchyResponse struct {
	Continents map[string]map[string][]League `json:"continents"`
}

// ReportResponse describes the processed player table.
type ReportResponse struct {
	Source            string             `json:"source"`
	LoadedAt          time.Time          `json:"loaded_at"`
	Rows              int                `json:"rows"`
	Columns           int                `json:"columns"`
	Per90Columns      []string           `json:"per90_columns"`
	DerivedColumns    []string           `json:"derived_columns"`
	NormalizedColumns []string           `json:"normalized_columns"`
	Cleaning          CleaningReport     `json:"cleaning"`
	Validation        DataQualityReport  `json:"validation"`
	Scaler            *ScalerDescription `json:"scaler,omitempty"`
}

// CleaningReport summarises row drops and imputation.
type CleaningReport struct {
	DroppedRows    int                `json:"dropped_rows"`
	ImputedNumeric map[string]float64 `json:"imputed_numeric"`
	ImputedText    []string           `json:"imputed_text"`
}

// RangeViolation counts percentage values outside [0, 100].
type RangeViolation struct {
	Below0   int `json:"lt0"`
	Above100 int `json:"gt100"`
}

// DataQualityReport is the advisory validation report.
type DataQualityReport struct {
	NegativeExposure int                       `json:"invalid_minutes"`
	OutOfRange       map[string]RangeViolation `json:"out_of_range,omitempty"`
	MissingCounts    map[string]int            `json:"missing_counts"`
}

// ScalerDescription names the scaling method and fitted columns.
type ScalerDescription struct {
	Method  string   `json:"method"`
	Columns []string `json:"columns"`
}

// HealthResponse reports server liveness and the loaded dataset.
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Dataset   *DatasetHealth `json:"dataset,omitempty"`
	Runtime   any            `json:"runtime,omitempty"`
}

// DatasetHealth summarises the loaded table.
type DatasetHealth struct {
	Source   string    `json:"source"`
	Rows     int       `json:"rows"`
	Leagues  int       `json:"leagues"`
	LoadedAt time.Time `json:"loaded_at"`
}
