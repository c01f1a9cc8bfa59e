package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/statusgraph/internal/models"
	"github.com/noah-isme/statusgraph/internal/repository"
)

func ptr(v int64) *int64 { return &v }

type statusStoreStub struct {
	mu        sync.Mutex
	statuses  map[int64]*models.Status
	children  map[int64][]int64
	childCall map[int64]int
	err       error
}

func newStatusStore(statuses ...models.Status) *statusStoreStub {
	s := &statusStoreStub{statuses: map[int64]*models.Status{}, childCall: map[int64]int{}}
	for i := range statuses {
		st := statuses[i]
		s.statuses[st.ID] = &st
	}
	return s
}

// withChildren overrides the children relation, for corrupt-data scenarios.
func (s *statusStoreStub) withChildren(children map[int64][]int64) *statusStoreStub {
	s.children = children
	return s
}

func (s *statusStoreStub) GetByID(ctx context.Context, id int64) (*models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	st, ok := s.statuses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *st
	return &clone, nil
}

func (s *statusStoreStub) GetMany(ctx context.Context, ids []int64) ([]models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Status{}
	for _, id := range ids {
		if st, ok := s.statuses[id]; ok {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s *statusStoreStub) ChildrenOf(ctx context.Context, id int64) ([]models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.childCall[id]++
	out := []models.Status{}
	if s.children != nil {
		for _, childID := range s.children[id] {
			if st, ok := s.statuses[childID]; ok {
				out = append(out, *st)
			}
		}
		return out, nil
	}
	for _, st := range s.statuses {
		if st.InReplyToID != nil && *st.InReplyToID == id {
			out = append(out, *st)
		}
	}
	// the store promises no order; hand children back newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.MaxID > 0 {
		older := out[:0]
		for _, q := range out {
			if q.ID < filter.MaxID {
				older = append(older, q)
			}
		}
		out = older
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *statusStoreStub) Exists(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.statuses[id]
	return ok, nil
}

func (s *statusStoreStub) UpdateQuotePolicy(ctx context.Context, id, expected, next int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok || st.QuoteApprovalPolicy != expected {
		return false, nil
	}
	st.QuoteApprovalPolicy = next
	return true, nil
}

func (s *statusStoreStub) ListThreadReplies(ctx context.Context, rootID int64, limit int) ([]models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Status{}
	for _, st := range s.statuses {
		if st.ID != rootID && st.InReplyToID != nil {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *statusStoreStub) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, id)
}

type relationshipStub struct {
	blocks  map[[2]int64]bool
	follows map[[2]int64]bool
}

func newRelationships() *relationshipStub {
	return &relationshipStub{blocks: map[[2]int64]bool{}, follows: map[[2]int64]bool{}}
}

func (r *relationshipStub) block(a, b int64) *relationshipStub {
	r.blocks[[2]int64{a, b}] = true
	return r
}

func (r *relationshipStub) follow(follower, target int64) *relationshipStub {
	r.follows[[2]int64{follower, target}] = true
	return r
}

func (r *relationshipStub) IsBlocked(ctx context.Context, a, b int64) (bool, error) {
	return r.blocks[[2]int64{a, b}] || r.blocks[[2]int64{b, a}], nil
}

func (r *relationshipStub) IsFollowing(ctx context.Context, follower, target int64) (bool, error) {
	return r.follows[[2]int64{follower, target}], nil
}

func (r *relationshipStub) BlockedAmong(ctx context.Context, account int64, others []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, other := range others {
		if blocked, _ := r.IsBlocked(ctx, account, other); blocked {
			out[other] = true
		}
	}
	return out, nil
}

func (r *relationshipStub) FollowedAmong(ctx context.Context, follower int64, targets []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, target := range targets {
		if r.follows[[2]int64{follower, target}] {
			out[target] = true
		}
	}
	return out, nil
}

type quoteStoreStub struct {
	mu      sync.Mutex
	quotes  map[int64]*models.Quote
	nextID  int64
	updates int
}

func newQuoteStore(quotes ...models.Quote) *quoteStoreStub {
	s := &quoteStoreStub{quotes: map[int64]*models.Quote{}, nextID: 100}
	for i := range quotes {
		q := quotes[i]
		s.quotes[q.StatusID] = &q
	}
	return s
}

func (s *quoteStoreStub) GetByStatusID(ctx context.Context, statusID int64) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[statusID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *q
	return &clone, nil
}

func (s *quoteStoreStub) Create(ctx context.Context, quote *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quotes[quote.StatusID]; exists {
		return repository.ErrDuplicate
	}
	s.nextID++
	quote.ID = s.nextID
	quote.CreatedAt = time.Now()
	clone := *quote
	s.quotes[quote.StatusID] = &clone
	return nil
}

func (s *quoteStoreStub) UpdateState(ctx context.Context, id int64, expected, next models.QuoteState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.quotes {
		if q.ID == id {
			if q.State != expected {
				return false, nil
			}
			q.State = next
			s.updates++
			return true, nil
		}
	}
	return false, nil
}

func (s *quoteStoreStub) ListByQuotedStatus(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Quote{}
	for _, q := range s.quotes {
		if q.QuotedStatusID != filter.QuotedStatusID {
			continue
		}
		if len(filter.States) > 0 {
			match := false
			for _, st := range filter.States {
				match = match || st == q.State
			}
			if !match {
				continue
			}
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.MaxID > 0 {
		older := out[:0]
		for _, q := range out {
			if q.ID < filter.MaxID {
				older = append(older, q)
			}
		}
		out = older
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *quoteStoreStub) state(statusID int64) models.QuoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotes[statusID].State
}

type notifierStub struct {
	mu            sync.Mutex
	statusUpdates []int64
	revoked       []int64
}

func (n *notifierStub) StatusUpdated(ctx context.Context, status *models.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusUpdates = append(n.statusUpdates, status.ID)
}

func (n *notifierStub) QuoteRevoked(ctx context.Context, quote *models.Quote) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revoked = append(n.revoked, quote.StatusID)
}

func (n *notifierStub) calls() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.statusUpdates), len(n.revoked)
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string]models.Context
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]models.Context{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.Context)) = v
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(models.Context)
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	prefix := pattern[:len(pattern)-1]
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	return nil
}
