package models

// Context is the resolved conversation around a status.
type Context struct {
	AncestorIDs   []int64 `json:"ancestor_ids"`
	DescendantIDs []int64 `json:"descendant_ids"`
}

// ContextLookup describes how a context was resolved: the thread root, the
// cache key of the descendant list and whether that key was a hit.
type ContextLookup struct {
	RootID   int64
	CacheKey string
	CacheHit bool
}

// ReplyNode is one entry of the compact, depth-bounded reply tree.
type ReplyNode struct {
	ID          int64        `json:"id"`
	InReplyToID int64        `json:"in_reply_to_id"`
	AccountID   int64        `json:"account_id"`
	Text        string       `json:"text"`
	Children    []*ReplyNode `json:"children"`
}
