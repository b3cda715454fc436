package model

import "time"

// ProgressExport is the top-level JSON structure for `stats --json`.
type ProgressExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       Stats           `json:"stats"`
	Recent      []int           `json:"recent_scores"`
	Results     []SessionResult `json:"results"`
}
