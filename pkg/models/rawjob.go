package models

import "time"

// RawJob is an extracted job record before validation/enrichment. Emission
// invariant: Title and Company must both be non-empty, or the adapter must
// not produce the record at all.
type RawJob struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Salary      string    `json:"salary,omitempty"`
	PostedDate  *time.Time `json:"posted_date,omitempty"`
	URL         string    `json:"url"`
	BoardID     string    `json:"board_id"`
	BoardName   string    `json:"board_name"`
	FetchedAt   time.Time `json:"fetched_at"`
	Engine      Engine    `json:"engine"`
}

// Valid reports whether the required-field emission invariant holds.
func (j *RawJob) Valid() bool {
	return j.Title != "" && j.Company != ""
}
