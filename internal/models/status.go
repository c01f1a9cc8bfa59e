package models

import "time"

// Visibility controls who may see a status.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	// VisibilityPrivate is followers-only.
	VisibilityPrivate Visibility = "private"
	VisibilityDirect  Visibility = "direct"
)

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect:
		return true
	}
	return false
}

// AllowsQuotePolicy reports whether a quote approval policy may be stored for
// statuses of this visibility.
func (v Visibility) AllowsQuotePolicy() bool {
	return v == VisibilityPublic || v == VisibilityUnlisted
}

// Status is a single post in the conversation graph. IDs grow with creation
// time.
type Status struct {
	ID                  int64      `db:"id" json:"id"`
	InReplyToID         *int64     `db:"in_reply_to_id" json:"in_reply_to_id,omitempty"`
	AccountID           int64      `db:"account_id" json:"account_id"`
	Visibility          Visibility `db:"visibility" json:"visibility"`
	QuoteApprovalPolicy int64      `db:"quote_approval_policy" json:"-"`
	Text                string     `db:"text" json:"text"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"-"`
}

// ParentID returns the replied-to status id, or 0 for thread roots.
func (s *Status) ParentID() int64 {
	if s == nil || s.InReplyToID == nil {
		return 0
	}
	return *s.InReplyToID
}

// IsReply reports whether the status answers another status.
func (s *Status) IsReply() bool {
	return s != nil && s.InReplyToID != nil
}
