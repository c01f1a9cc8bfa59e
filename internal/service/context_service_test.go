package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

func reply(id, parent, author int64) models.Status {
	st := models.Status{ID: id, AccountID: author, Visibility: models.VisibilityPublic}
	if parent != 0 {
		st.InReplyToID = ptr(parent)
	}
	return st
}

func withVisibility(st models.Status, v models.Visibility) models.Status {
	st.Visibility = v
	return st
}

func newContextService(store *statusStoreStub, limits ContextLimits) *ContextService {
	return NewContextService(ContextServiceParams{
		Statuses:      store,
		Relationships: newRelationships(),
		Limits:        limits,
	})
}

func TestAncestorsRootFirst(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2), reply(3, 2, 3), reply(4, 3, 4))
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Ancestors(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = svc.Ancestors(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAncestorsTerminateOnCycle(t *testing.T) {
	store := newStatusStore(reply(3, 4, 1), reply(4, 3, 2))
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Ancestors(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	longer := newStatusStore(reply(10, 12, 1), reply(11, 10, 1), reply(12, 11, 1), reply(13, 12, 2))
	svc = newContextService(longer, ContextLimits{})
	ids, err = svc.Ancestors(context.Background(), 13)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, ids)
}

func TestAncestorsIncludeMissingParent(t *testing.T) {
	store := newStatusStore(reply(5, 99, 1), reply(6, 5, 2))
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Ancestors(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 5}, ids)
}

func TestAncestorsLimitKeepsNearest(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2), reply(3, 2, 3), reply(4, 3, 4))
	svc := newContextService(store, ContextLimits{Ancestors: 2})

	ids, err := svc.Ancestors(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestAncestorsNotFound(t *testing.T) {
	svc := newContextService(newStatusStore(), ContextLimits{})
	_, err := svc.Ancestors(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDescendantsKeepsArrivalOrderAfterBreakpoint(t *testing.T) {
	// R=1 by author 1; X, Y, Z reply to R in that order.
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 1), reply(3, 1, 2), reply(4, 1, 1))
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestDescendantsSelfRepliesBeforeBreakpointStay(t *testing.T) {
	// X, Z by the root author arrive before Y; Z precedes the breakpoint at Y.
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 1), reply(3, 1, 1), reply(4, 1, 2))
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids)
}

func TestDescendantsPreOrder(t *testing.T) {
	store := newStatusStore(
		reply(1, 0, 1),
		reply(2, 1, 1),
		reply(3, 2, 2),
		reply(5, 3, 3),
		reply(4, 1, 4),
	)
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 5, 4}, ids)
	for id, calls := range store.childCall {
		assert.LessOrEqual(t, calls, 1, "children of %d loaded more than once", id)
	}
}

func TestDescendantsMoveSelfContinuations(t *testing.T) {
	// root 1 by author 1
	// 2 by author 2 -> breakpoint
	// 3 by author 3 replying to 2
	// 4 by author 3 replying to 3 (self-continuation)
	// 6 by author 1 replying to 1 (self-continuation)
	store := newStatusStore(
		reply(1, 0, 1),
		reply(2, 1, 2),
		reply(3, 2, 3),
		reply(4, 3, 3),
		reply(5, 2, 5),
		reply(6, 1, 1),
	)
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	// traversal order is 2, 3, 4, 5, 6
	assert.Equal(t, []int64{2, 4, 6, 3, 5}, ids)
}

func TestReorderSelfRepliesIdempotent(t *testing.T) {
	entries := []threadEntry{
		{ID: 2, ParentID: 1, AccountID: 1},
		{ID: 3, ParentID: 2, AccountID: 2},
		{ID: 4, ParentID: 1, AccountID: 3},
		{ID: 5, ParentID: 4, AccountID: 3},
		{ID: 6, ParentID: 3, AccountID: 7},
		{ID: 7, ParentID: 2, AccountID: 1},
		{ID: 8, ParentID: 99, AccountID: 1},
	}
	authors := map[int64]int64{1: 1}
	for _, e := range entries {
		authors[e.ID] = e.AccountID
	}

	once := reorderSelfReplies(entries, authors)
	twice := reorderSelfReplies(once, authors)
	assert.Equal(t, once, twice)

	ids := make([]int64, len(once))
	for i, e := range once {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{2, 3, 5, 7, 4, 6, 8}, ids)
}

func TestReorderSelfRepliesWithoutBreakpoint(t *testing.T) {
	entries := []threadEntry{{ID: 2, ParentID: 1, AccountID: 1}, {ID: 3, ParentID: 2, AccountID: 1}}
	authors := map[int64]int64{1: 1, 2: 1, 3: 1}
	assert.Equal(t, entries, reorderSelfReplies(entries, authors))
	assert.Empty(t, reorderSelfReplies(nil, authors))
}

func TestDescendantsGuardAgainstCorruptChildren(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 1), reply(3, 2, 1)).
		withChildren(map[int64][]int64{1: {2}, 2: {3}, 3: {2, 1, 3}})
	svc := newContextService(store, ContextLimits{})

	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestDescendantsLimits(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2), reply(3, 2, 3), reply(4, 1, 4), reply(5, 1, 5))

	svc := newContextService(store, ContextLimits{DescendantsDepth: 1})
	ids, err := svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 5}, ids)

	svc = newContextService(store, ContextLimits{Descendants: 2})
	ids, err = svc.Descendants(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}

func TestFilterVisible(t *testing.T) {
	store := newStatusStore(
		reply(1, 0, 1),
		withVisibility(reply(2, 1, 2), models.VisibilityUnlisted),
		withVisibility(reply(3, 1, 3), models.VisibilityPrivate),
		withVisibility(reply(4, 1, 4), models.VisibilityDirect),
		reply(5, 1, 5),
	)
	rels := newRelationships().follow(9, 3).block(5, 9)
	svc := NewContextService(ContextServiceParams{Statuses: store, Relationships: rels})
	ids := []int64{1, 2, 3, 4, 5, 77}
	ctx := context.Background()

	anonymous, err := svc.FilterVisible(ctx, ids, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 5}, anonymous)

	follower, err := svc.FilterVisible(ctx, ids, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, follower)

	author, err := svc.FilterVisible(ctx, ids, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4, 5}, author)

	empty, err := svc.FilterVisible(ctx, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestContextUsesCacheAndInvalidation(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2), reply(3, 2, 1))
	cache := newMemoryCache()
	svc := NewContextService(ContextServiceParams{Statuses: store, Relationships: newRelationships(), Cache: cache})
	ctx := context.Background()

	got, lookup, err := svc.Context(ctx, 2, 0)
	require.NoError(t, err)
	assert.False(t, lookup.CacheHit)
	assert.Equal(t, int64(1), lookup.RootID)
	assert.Equal(t, "context:1:2", lookup.CacheKey)
	assert.Equal(t, []int64{1}, got.AncestorIDs)
	assert.Equal(t, []int64{3}, got.DescendantIDs)
	assert.Contains(t, cache.entries, "context:1:2")

	got, lookup, err = svc.Context(ctx, 2, 0)
	require.NoError(t, err)
	assert.True(t, lookup.CacheHit)
	assert.Equal(t, []int64{3}, got.DescendantIDs)

	require.NoError(t, svc.InvalidateThread(ctx, 3))
	assert.Equal(t, []string{"context:1:*"}, cache.invalidated)
	assert.Empty(t, cache.entries)
}

func TestContextHidesStatusesFromViewer(t *testing.T) {
	store := newStatusStore(
		reply(1, 0, 1),
		withVisibility(reply(2, 1, 2), models.VisibilityDirect),
		reply(3, 1, 3),
	)
	svc := NewContextService(ContextServiceParams{Statuses: store, Relationships: newRelationships()})

	got, _, err := svc.Context(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, got.AncestorIDs)
	assert.Equal(t, []int64{3}, got.DescendantIDs)
}
