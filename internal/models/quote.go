package models

import "time"

// QuoteState tracks a quote through its approval lifecycle.
type QuoteState string

const (
	QuoteStatePending  QuoteState = "pending"
	QuoteStateAccepted QuoteState = "accepted"
	QuoteStateRejected QuoteState = "rejected"
	QuoteStateRevoked  QuoteState = "revoked"

	// Derived at read time, never persisted.
	QuoteStateDeleted      QuoteState = "deleted"
	QuoteStateUnauthorized QuoteState = "unauthorized"
)

// Persisted reports whether s may be stored on a quote row.
func (s QuoteState) Persisted() bool {
	switch s {
	case QuoteStatePending, QuoteStateAccepted, QuoteStateRejected, QuoteStateRevoked:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s QuoteState) Terminal() bool {
	return s == QuoteStateRejected || s == QuoteStateRevoked
}

// CanTransition reports whether the persisted lifecycle allows from -> to.
func CanTransition(from, to QuoteState) bool {
	switch from {
	case QuoteStatePending:
		return to == QuoteStateAccepted || to == QuoteStateRejected
	case QuoteStateAccepted:
		return to == QuoteStateRevoked
	}
	return false
}

// Quote links a quoting status to the status it embeds.
type Quote struct {
	ID              int64      `db:"id" json:"id"`
	StatusID        int64      `db:"status_id" json:"status_id"`
	AccountID       int64      `db:"account_id" json:"account_id"`
	QuotedStatusID  int64      `db:"quoted_status_id" json:"quoted_status_id"`
	QuotedAccountID int64      `db:"quoted_account_id" json:"quoted_account_id"`
	State           QuoteState `db:"state" json:"state"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// QuoteFilter constrains quote listings.
type QuoteFilter struct {
	QuotedStatusID int64
	States         []QuoteState
	MaxID          int64
	Limit          int
}

// QuoteView pairs a quote with the state a particular viewer should see.
type QuoteView struct {
	Quote
	EffectiveState QuoteState `json:"effective_state"`
}

// QuotePage is one page of a quote listing. NextMaxID points past the last
// row scanned, which may be older than the last item kept for the viewer.
type QuotePage struct {
	Items     []QuoteView
	NextMaxID *int64
}
