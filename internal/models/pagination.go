package models

// Pagination carries cursor metadata for id-ordered listings.
type Pagination struct {
	Limit     int    `json:"limit"`
	NextMaxID *int64 `json:"next_max_id,omitempty"`
}
