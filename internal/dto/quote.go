package dto

// CreateQuoteRequest asks to embed another status in the path status.
type CreateQuoteRequest struct {
	QuotedStatusID int64 `json:"quoted_status_id" validate:"required,gt=0"`
}

// QuoteListQuery holds cursor parameters for quote listings.
type QuoteListQuery struct {
	MaxID int64 `form:"max_id" validate:"omitempty,gt=0"`
	Limit int   `form:"limit" validate:"omitempty,min=1,max=80"`
}
