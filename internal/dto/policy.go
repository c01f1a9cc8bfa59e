package dto

// QuoteApproval is the wire form of a status's quote approval policy.
type QuoteApproval struct {
	Automatic   []string `json:"automatic"`
	Manual      []string `json:"manual"`
	CurrentUser string   `json:"current_user"`
}

// UpdateQuoteApprovalRequest changes who may quote a status. Omitted arrays
// mean nobody.
type UpdateQuoteApprovalRequest struct {
	Automatic []string `json:"automatic" validate:"max=1,dive,oneof=public followers"`
	Manual    []string `json:"manual" validate:"max=1,dive,oneof=public followers"`
}
