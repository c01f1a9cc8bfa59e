package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/quotepolicy"
)

func newPolicyFixture(visibility models.Visibility, current quotepolicy.Policy) (*StatusPolicyService, *statusStoreStub, *notifierStub, *relationshipStub) {
	st := withVisibility(reply(10, 0, 1), visibility)
	st.QuoteApprovalPolicy = quotepolicy.Encode(current)
	store := newStatusStore(st)
	notifier := &notifierStub{}
	rels := newRelationships()
	return NewStatusPolicyService(store, rels, notifier, NewMetricsService(), nil), store, notifier, rels
}

func TestChangePolicyPersistsAndNotifiesOnce(t *testing.T) {
	svc, store, notifier, _ := newPolicyFixture(models.VisibilityPublic, quotepolicy.Policy{Automatic: quotepolicy.ScopePublic})

	next := quotepolicy.Policy{Automatic: quotepolicy.ScopeFollowers, Manual: quotepolicy.ScopePublic}
	status, err := svc.ChangePolicy(context.Background(), 10, next, 1)
	require.NoError(t, err)
	assert.Equal(t, quotepolicy.Encode(next), status.QuoteApprovalPolicy)
	assert.Equal(t, quotepolicy.Encode(next), store.statuses[10].QuoteApprovalPolicy)

	updates, _ := notifier.calls()
	assert.Equal(t, 1, updates)
}

func TestChangePolicyNormalizesBeforeCompare(t *testing.T) {
	svc, store, notifier, _ := newPolicyFixture(models.VisibilityUnlisted, quotepolicy.Policy{Automatic: quotepolicy.ScopePublic})

	_, err := svc.ChangePolicy(context.Background(), 10, quotepolicy.Policy{Automatic: quotepolicy.ScopePublic, Manual: quotepolicy.ScopeFollowers}, 1)
	require.NoError(t, err)
	assert.Equal(t, quotepolicy.Encode(quotepolicy.Policy{Automatic: quotepolicy.ScopePublic}), store.statuses[10].QuoteApprovalPolicy)

	updates, _ := notifier.calls()
	assert.Zero(t, updates)
}

func TestChangePolicyOnPrivateOrDirectIsNoop(t *testing.T) {
	for _, visibility := range []models.Visibility{models.VisibilityPrivate, models.VisibilityDirect} {
		svc, store, notifier, _ := newPolicyFixture(visibility, quotepolicy.Policy{})
		for i := 0; i < 3; i++ {
			status, err := svc.ChangePolicy(context.Background(), 10, quotepolicy.Policy{Automatic: quotepolicy.ScopePublic}, 1)
			require.NoError(t, err)
			assert.Equal(t, int64(10), status.ID)
		}
		assert.Zero(t, store.statuses[10].QuoteApprovalPolicy)
		updates, _ := notifier.calls()
		assert.Zero(t, updates, "visibility %s", visibility)
	}
}

func TestChangePolicyGuards(t *testing.T) {
	svc, store, notifier, _ := newPolicyFixture(models.VisibilityPublic, quotepolicy.Policy{})
	ctx := context.Background()
	next := quotepolicy.Policy{Automatic: quotepolicy.ScopePublic}

	_, err := svc.ChangePolicy(ctx, 10, next, 2)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ChangePolicy(ctx, 10, next, 0)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ChangePolicy(ctx, 404, next, 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Zero(t, store.statuses[10].QuoteApprovalPolicy)
	updates, _ := notifier.calls()
	assert.Zero(t, updates)
}

type racingPolicyStore struct {
	*statusStoreStub
}

// UpdateQuotePolicy simulates another writer landing first.
func (r racingPolicyStore) UpdateQuotePolicy(ctx context.Context, id, expected, next int64) (bool, error) {
	return false, nil
}

func TestChangePolicyConflict(t *testing.T) {
	st := reply(10, 0, 1)
	notifier := &notifierStub{}
	svc := NewStatusPolicyService(racingPolicyStore{newStatusStore(st)}, nil, notifier, nil, nil)

	_, err := svc.ChangePolicy(context.Background(), 10, quotepolicy.Policy{Manual: quotepolicy.ScopePublic}, 1)
	assert.ErrorIs(t, err, appErrors.ErrStateConflict)
	updates, _ := notifier.calls()
	assert.Zero(t, updates)
}

func TestChangePolicyConcurrentWritersNotifyOncePerCommit(t *testing.T) {
	svc, _, notifier, _ := newPolicyFixture(models.VisibilityPublic, quotepolicy.Policy{})
	next := quotepolicy.Policy{Automatic: quotepolicy.ScopeFollowers}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ChangePolicy(context.Background(), 10, next, 1)
		}()
	}
	wg.Wait()

	updates, _ := notifier.calls()
	assert.Equal(t, 1, updates)
}

func TestGetPolicyCurrentUser(t *testing.T) {
	svc, _, _, rels := newPolicyFixture(models.VisibilityPublic, quotepolicy.Policy{Automatic: quotepolicy.ScopeFollowers, Manual: quotepolicy.ScopePublic})
	rels.follow(5, 1)
	ctx := context.Background()

	view, err := svc.Get(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"followers"}, view.Automatic)
	assert.Equal(t, []string{"public"}, view.Manual)
	assert.Equal(t, string(quotepolicy.CurrentUserUnknown), view.CurrentUser)

	view, err = svc.Get(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, string(quotepolicy.CurrentUserAutomatic), view.CurrentUser)

	view, err = svc.Get(ctx, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, string(quotepolicy.CurrentUserAutomatic), view.CurrentUser)

	view, err = svc.Get(ctx, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, string(quotepolicy.CurrentUserManual), view.CurrentUser)
}

func TestGetPolicyPrivateStatus(t *testing.T) {
	svc, _, _, _ := newPolicyFixture(models.VisibilityDirect, quotepolicy.Policy{Automatic: quotepolicy.ScopePublic})

	view, err := svc.Get(context.Background(), 10, 6)
	require.NoError(t, err)
	assert.Empty(t, view.Automatic)
	assert.Empty(t, view.Manual)
	assert.Equal(t, string(quotepolicy.CurrentUserDenied), view.CurrentUser)
}
