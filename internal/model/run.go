package model

import "time"

// RunRecord is the stored history entry of one classification run.
type RunRecord struct {
	CreatedAt time.Time   `json:"createdAt"`
	Summary   SummaryData `json:"summary"`
	Source    string      `json:"source"`
	Mode      Mode        `json:"mode"`
	ProfileID string      `json:"profileId"`
	ID        int64       `json:"id"`
}

// NewRunRecord captures the history entry for result classified with profileID.
func NewRunRecord(result *Result, profileID string) RunRecord {
	return RunRecord{
		Source:    result.Source,
		Mode:      result.Mode,
		ProfileID: profileID,
		Summary:   result.Summary,
	}
}
