// Package api contains the v1 request and response contracts of the StatTwin
// HTTP API.
package api

// AgeRange is an inclusive age interval. An inverted range is not rejected;
// the filter reports it under issues.invalid_values.
type AgeRange struct {
	Min float64 `json:"min" validate:"gte=0,lte=60"`
	Max float64 `json:"max" validate:"gte=0,lte=60"`
}

// FilterSpec restricts the candidate pool. Empty lists do not constrain.
// Positions and Seasons match the raw column values exactly, e.g. "FW,MF" or
// "2024".
// LeagueIDs are resolved to league names through the registry and merged
// with Leagues.
type FilterSpec struct {
	AgeRange   *AgeRange `json:"age_range,omitempty" validate:"omitempty"`
	Leagues    []string  `json:"leagues,omitempty" validate:"omitempty,dive,required"`
	LeagueIDs  []int     `json:"league_ids,omitempty" validate:"omitempty,dive,gt=0"`
	Continents []string  `json:"continents,omitempty" validate:"omitempty,dive,required"`
	Positions  []string  `json:"positions,omitempty" validate:"omitempty,dive,required"`
	Seasons    []string  `json:"seasons,omitempty" validate:"omitempty,dive,required"`
}

// WeightsRequest configures per-feature weights. ColumnWeights win over
// Position.
type WeightsRequest struct {
	Position      string             `json:"position,omitempty" validate:"omitempty,position"`
	ColumnWeights map[string]float64 `json:"column_weights,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
}

// SimilarRequest asks for the nearest neighbours of one player, selected by
// id or by row index.
type SimilarRequest struct {
	PlayerID      string          `json:"player_id,omitempty" validate:"required_without=Index"`
	Index         *int            `json:"index,omitempty" validate:"omitempty,gte=0"`
	Metric        string          `json:"metric,omitempty" validate:"omitempty,metric"`
	TopK          int             `json:"top_k,omitempty" validate:"omitempty,gte=1,lte=1000"`
	Features      []string        `json:"features,omitempty" validate:"omitempty,dive,required"`
	Weights       *WeightsRequest `json:"weights,omitempty"`
	Filters       *FilterSpec     `json:"filters,omitempty"`
	SamePosition  bool            `json:"same_position,omitempty"`
	ReturnColumns []string        `json:"return_columns,omitempty" validate:"omitempty,dive,required"`
}

// RankAllRequest ranks every player against the rest of the table.
type RankAllRequest struct {
	Metric       string          `json:"metric,omitempty" validate:"omitempty,metric"`
	TopK         int             `json:"top_k,omitempty" validate:"omitempty,gte=1,lte=1000"`
	Features     []string        `json:"features,omitempty" validate:"omitempty,dive,required"`
	Weights      *WeightsRequest `json:"weights,omitempty"`
	Filters      *FilterSpec     `json:"filters,omitempty"`
	SamePosition bool            `json:"same_position,omitempty"`
}

// FilterRequest returns the players matching Filters.
type FilterRequest struct {
	Filters FilterSpec `json:"filters"`
	Columns []string   `json:"columns,omitempty" validate:"omitempty,dive,required"`
	Limit   int        `json:"limit,omitempty" validate:"omitempty,gte=1,lte=10000"`
}
