package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

// maxAncestorWalk bounds the parent walk when a thread is deeper than any
// sane conversation.
const maxAncestorWalk = 4096

const (
	resolutionAncestors   = "ancestors"
	resolutionDescendants = "descendants"
)

type contextStatusStore interface {
	GetByID(ctx context.Context, id int64) (*models.Status, error)
	GetMany(ctx context.Context, ids []int64) ([]models.Status, error)
	ChildrenOf(ctx context.Context, id int64) ([]models.Status, error)
}

type viewerRelationshipStore interface {
	BlockedAmong(ctx context.Context, account int64, others []int64) (map[int64]bool, error)
	FollowedAmong(ctx context.Context, follower int64, targets []int64) (map[int64]bool, error)
}

type contextCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ContextLimits caps thread walks. Zero disables a limit.
type ContextLimits struct {
	Ancestors        int
	Descendants      int
	DescendantsDepth int
}

// ContextServiceParams groups ContextService collaborators.
type ContextServiceParams struct {
	Statuses      contextStatusStore
	Relationships viewerRelationshipStore
	Cache         contextCache
	Metrics       *MetricsService
	Logger        *zap.Logger
	Limits        ContextLimits
	CacheTTL      time.Duration
}

// ContextService resolves the conversation around a status.
type ContextService struct {
	statuses      contextStatusStore
	relationships viewerRelationshipStore
	cache         contextCache
	metrics       *MetricsService
	logger        *zap.Logger
	limits        ContextLimits
	cacheTTL      time.Duration
}

// NewContextService constructs a ContextService.
func NewContextService(params ContextServiceParams) *ContextService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextService{
		statuses:      params.Statuses,
		relationships: params.Relationships,
		cache:         params.Cache,
		metrics:       params.Metrics,
		logger:        logger,
		limits:        params.Limits,
		cacheTTL:      params.CacheTTL,
	}
}

// Ancestors returns the parent chain of statusID, root first. Walks stop at a
// null parent, at a repeated id, or at a parent the store cannot resolve (that
// id is still included). With a limit, the nearest ancestors are kept.
func (s *ContextService) Ancestors(ctx context.Context, statusID int64) ([]int64, error) {
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return nil, err
	}
	chain, err := s.ancestorChain(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.trimAncestors(chain), nil
}

func (s *ContextService) trimAncestors(chain []int64) []int64 {
	if limit := s.limits.Ancestors; limit > 0 && len(chain) > limit {
		return chain[len(chain)-limit:]
	}
	return chain
}

func (s *ContextService) ancestorChain(ctx context.Context, status *models.Status) ([]int64, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveContextResolution(resolutionAncestors, time.Since(start)) }()

	chain := make([]int64, 0, 8)
	seen := map[int64]struct{}{status.ID: {}}
	current := status
	for current.InReplyToID != nil && len(chain) < maxAncestorWalk {
		parentID := *current.InReplyToID
		if _, dup := seen[parentID]; dup {
			s.logger.Warn("reply cycle detected", zap.Int64("status_id", status.ID), zap.Int64("repeated_id", parentID))
			break
		}
		seen[parentID] = struct{}{}
		chain = append(chain, parentID)

		parent, err := s.statuses.GetByID(ctx, parentID)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load ancestor")
		}
		current = parent
	}
	return lo.Reverse(chain), nil
}

// threadEntry is a descendant as seen by the reordering pass.
type threadEntry struct {
	ID        int64
	ParentID  int64
	AccountID int64
}

// Descendants returns every reply below statusID in display order.
func (s *ContextService) Descendants(ctx context.Context, statusID int64) ([]int64, error) {
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return nil, err
	}
	return s.descendants(ctx, status)
}

func (s *ContextService) descendants(ctx context.Context, root *models.Status) ([]int64, error) {
	start := time.Now()
	entries, err := s.walkDescendants(ctx, root)
	s.metrics.ObserveContextResolution(resolutionDescendants, time.Since(start))
	if err != nil {
		return nil, err
	}

	authors := make(map[int64]int64, len(entries)+1)
	authors[root.ID] = root.AccountID
	for _, e := range entries {
		authors[e.ID] = e.AccountID
	}
	ordered := reorderSelfReplies(entries, authors)
	return lo.Map(ordered, func(e threadEntry, _ int) int64 { return e.ID }), nil
}

// walkDescendants runs an explicit-stack depth-first walk. Children of each
// node are pushed newest first so they pop oldest first. An id that was
// already emitted or queued is never pushed again.
func (s *ContextService) walkDescendants(ctx context.Context, root *models.Status) ([]threadEntry, error) {
	type frame struct {
		entry threadEntry
		depth int
	}

	visited := map[int64]struct{}{root.ID: {}}
	var stack []frame
	push := func(parentID int64, depth int) error {
		children, err := s.statuses.ChildrenOf(ctx, parentID)
		if err != nil {
			return appErrors.Internal(err, "failed to load replies")
		}
		sort.Slice(children, func(i, j int) bool { return children[i].ID > children[j].ID })
		for _, child := range children {
			if _, ok := visited[child.ID]; ok {
				continue
			}
			visited[child.ID] = struct{}{}
			stack = append(stack, frame{
				entry: threadEntry{ID: child.ID, ParentID: parentID, AccountID: child.AccountID},
				depth: depth,
			})
		}
		return nil
	}

	if err := push(root.ID, 1); err != nil {
		return nil, err
	}

	var out []threadEntry
	for len(stack) > 0 {
		if limit := s.limits.Descendants; limit > 0 && len(out) >= limit {
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, top.entry)

		if depth := s.limits.DescendantsDepth; depth > 0 && top.depth >= depth {
			continue
		}
		if err := push(top.entry.ID, top.depth+1); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// reorderSelfReplies finds the first descendant whose author differs from its
// parent's author and moves every later self-continuation directly after it,
// keeping relative order on both sides. Applying it twice changes nothing.
func reorderSelfReplies(entries []threadEntry, authors map[int64]int64) []threadEntry {
	isSelf := func(e threadEntry, _ int) bool {
		parentAuthor, ok := authors[e.ParentID]
		return ok && parentAuthor == e.AccountID
	}

	breakpoint := -1
	for i, e := range entries {
		if !isSelf(e, i) {
			breakpoint = i
			break
		}
	}
	if breakpoint < 0 || breakpoint == len(entries)-1 {
		return entries
	}

	tail := entries[breakpoint+1:]
	out := make([]threadEntry, 0, len(entries))
	out = append(out, entries[:breakpoint+1]...)
	out = append(out, lo.Filter(tail, isSelf)...)
	out = append(out, lo.Reject(tail, isSelf)...)
	return out
}

func contextCacheKey(rootID, statusID int64) string {
	return fmt.Sprintf("context:%d:%d", rootID, statusID)
}

func threadCachePattern(rootID int64) string {
	return fmt.Sprintf("context:%d:*", rootID)
}

// Context resolves ancestors and descendants of statusID and filters them for
// viewerID (zero for anonymous). The lookup reports the thread root and the
// descendant cache key, and whether that key was served from cache.
func (s *ContextService) Context(ctx context.Context, statusID, viewerID int64) (*models.Context, models.ContextLookup, error) {
	var lookup models.ContextLookup
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return nil, lookup, err
	}

	chain, err := s.ancestorChain(ctx, status)
	if err != nil {
		return nil, lookup, err
	}
	lookup.RootID = status.ID
	if len(chain) > 0 {
		lookup.RootID = chain[0]
	}
	lookup.CacheKey = contextCacheKey(lookup.RootID, status.ID)

	var cached models.Context
	if s.cache != nil {
		if lookup.CacheHit, err = s.cache.Get(ctx, lookup.CacheKey, &cached); err != nil {
			lookup.CacheHit = false
		}
	}

	descendants := cached.DescendantIDs
	if !lookup.CacheHit {
		descendants, err = s.descendants(ctx, status)
		if err != nil {
			return nil, lookup, err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, lookup.CacheKey, models.Context{AncestorIDs: chain, DescendantIDs: descendants}, s.cacheTTL)
		}
	}

	ancestors, err := s.FilterVisible(ctx, s.trimAncestors(chain), viewerID)
	if err != nil {
		return nil, lookup, err
	}
	descendants, err = s.FilterVisible(ctx, descendants, viewerID)
	if err != nil {
		return nil, lookup, err
	}
	return &models.Context{AncestorIDs: ancestors, DescendantIDs: descendants}, lookup, nil
}

// FilterVisible keeps the ids viewerID may see, preserving order. Missing
// statuses are dropped; direct statuses need authorship, private statuses
// authorship or a follow, and a block in either direction hides a status.
// Anonymous viewers only see public and unlisted statuses.
func (s *ContextService) FilterVisible(ctx context.Context, ids []int64, viewerID int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}
	statuses, err := s.statuses.GetMany(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load thread statuses")
	}
	byID := lo.KeyBy(statuses, func(st models.Status) int64 { return st.ID })

	blocked := map[int64]bool{}
	followed := map[int64]bool{}
	if !isAnonymous(viewerID) && s.relationships != nil {
		others := lo.Uniq(lo.FilterMap(statuses, func(st models.Status, _ int) (int64, bool) {
			return st.AccountID, st.AccountID != viewerID
		}))
		if blocked, err = s.relationships.BlockedAmong(ctx, viewerID, others); err != nil {
			return nil, appErrors.Internal(err, "failed to load blocks")
		}
		privateAuthors := lo.Uniq(lo.FilterMap(statuses, func(st models.Status, _ int) (int64, bool) {
			return st.AccountID, st.Visibility == models.VisibilityPrivate && st.AccountID != viewerID
		}))
		if followed, err = s.relationships.FollowedAmong(ctx, viewerID, privateAuthors); err != nil {
			return nil, appErrors.Internal(err, "failed to load follows")
		}
	}

	return lo.Filter(ids, func(id int64, _ int) bool {
		st, ok := byID[id]
		if !ok {
			return false
		}
		if isAnonymous(viewerID) {
			return st.Visibility == models.VisibilityPublic || st.Visibility == models.VisibilityUnlisted
		}
		if st.AccountID == viewerID {
			return true
		}
		if blocked[st.AccountID] {
			return false
		}
		switch st.Visibility {
		case models.VisibilityPublic, models.VisibilityUnlisted:
			return true
		case models.VisibilityPrivate:
			return followed[st.AccountID]
		default:
			return false
		}
	}), nil
}

// InvalidateThread drops every cached context of the thread containing
// statusID.
func (s *ContextService) InvalidateThread(ctx context.Context, statusID int64) error {
	if s.cache == nil {
		return nil
	}
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return err
	}
	chain, err := s.ancestorChain(ctx, status)
	if err != nil {
		return err
	}
	rootID := status.ID
	if len(chain) > 0 {
		rootID = chain[0]
	}
	return s.InvalidateRoot(ctx, rootID)
}

// InvalidateRoot drops every cached context under rootID.
func (s *ContextService) InvalidateRoot(ctx context.Context, rootID int64) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, threadCachePattern(rootID)); err != nil {
		return appErrors.Internal(err, "failed to invalidate thread cache")
	}
	return nil
}
