package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/statusgraph/internal/dto"
	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/quotepolicy"
)

const (
	policyOutcomeChanged    = "changed"
	policyOutcomeUnchanged  = "unchanged"
	policyOutcomeVisibility = "skipped_visibility"
	policyOutcomeConflict   = "conflict"
)

type policyStatusStore interface {
	GetByID(ctx context.Context, id int64) (*models.Status, error)
	UpdateQuotePolicy(ctx context.Context, id, expected, next int64) (bool, error)
}

type followChecker interface {
	IsFollowing(ctx context.Context, follower, target int64) (bool, error)
}

// StatusPolicyService reads and changes quote approval policies.
type StatusPolicyService struct {
	statuses policyStatusStore
	follows  followChecker
	notifier distributionNotifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewStatusPolicyService constructs a StatusPolicyService.
func NewStatusPolicyService(statuses policyStatusStore, follows followChecker, notifier distributionNotifier, metrics *MetricsService, logger *zap.Logger) *StatusPolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusPolicyService{statuses: statuses, follows: follows, notifier: notifier, metrics: metrics, logger: logger}
}

// effectivePolicy is the policy in force for status. Statuses whose
// visibility cannot carry a policy are quotable by nobody but their author.
func effectivePolicy(status *models.Status) quotepolicy.Policy {
	if !status.Visibility.AllowsQuotePolicy() {
		return quotepolicy.Policy{}
	}
	return quotepolicy.Decode(status.QuoteApprovalPolicy)
}

// Get renders the policy of statusID together with the bucket viewerID
// falls into.
func (s *StatusPolicyService) Get(ctx context.Context, statusID, viewerID int64) (*dto.QuoteApproval, error) {
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return nil, err
	}
	policy := effectivePolicy(status)

	relation := quotepolicy.Relation{Anonymous: isAnonymous(viewerID), IsAuthor: viewerID == status.AccountID}
	if !relation.Anonymous && !relation.IsAuthor && s.follows != nil &&
		(policy.Automatic == quotepolicy.ScopeFollowers || policy.Manual == quotepolicy.ScopeFollowers) {
		if relation.Follows, err = s.follows.IsFollowing(ctx, viewerID, status.AccountID); err != nil {
			return nil, appErrors.Internal(err, "failed to check follow")
		}
	}

	automatic, manual := policy.Wire()
	return &dto.QuoteApproval{
		Automatic:   automatic,
		Manual:      manual,
		CurrentUser: string(quotepolicy.Evaluate(policy, relation)),
	}, nil
}

// ChangePolicy stores a new policy for statusID on behalf of actorID. Only
// the author may change it. Private and direct statuses accept the call but
// store nothing; an unchanged value is also a silent success. A real change
// is written with check-and-set and then announced exactly once.
func (s *StatusPolicyService) ChangePolicy(ctx context.Context, statusID int64, policy quotepolicy.Policy, actorID int64) (*models.Status, error) {
	if isAnonymous(actorID) {
		return nil, appErrors.ErrUnauthorized
	}
	status, err := loadStatus(ctx, s.statuses, statusID)
	if err != nil {
		return nil, err
	}
	if status.AccountID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can change the quote policy")
	}
	if !status.Visibility.AllowsQuotePolicy() {
		s.metrics.RecordPolicyChange(policyOutcomeVisibility)
		return status, nil
	}

	next := quotepolicy.Encode(policy.Normalize())
	current := status.QuoteApprovalPolicy
	if next == current {
		s.metrics.RecordPolicyChange(policyOutcomeUnchanged)
		return status, nil
	}

	ok, err := s.statuses.UpdateQuotePolicy(ctx, status.ID, current, next)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update quote policy")
	}
	if !ok {
		s.metrics.RecordPolicyChange(policyOutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrStateConflict, "quote policy changed concurrently")
	}

	status.QuoteApprovalPolicy = next
	s.metrics.RecordPolicyChange(policyOutcomeChanged)
	s.logger.Info("quote policy changed",
		zap.Int64("status_id", status.ID),
		zap.Int64("previous", current),
		zap.Int64("policy", next))
	if s.notifier != nil {
		s.notifier.StatusUpdated(ctx, status)
	}
	return status, nil
}
