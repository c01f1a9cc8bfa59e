package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/statusgraph/internal/models"
	"github.com/noah-isme/statusgraph/internal/repository"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/quotepolicy"
)

type quoteStore interface {
	GetByStatusID(ctx context.Context, statusID int64) (*models.Quote, error)
	Create(ctx context.Context, quote *models.Quote) error
	UpdateState(ctx context.Context, id int64, expected, next models.QuoteState) (bool, error)
	ListByQuotedStatus(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, error)
}

type quoteStatusStore interface {
	GetByID(ctx context.Context, id int64) (*models.Status, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type relationshipStore interface {
	IsBlocked(ctx context.Context, a, b int64) (bool, error)
	IsFollowing(ctx context.Context, follower, target int64) (bool, error)
}

// distributionNotifier is told about changes that need redelivery. Calls
// return immediately; delivery happens in the background.
type distributionNotifier interface {
	StatusUpdated(ctx context.Context, status *models.Status)
	QuoteRevoked(ctx context.Context, quote *models.Quote)
}

// EffectiveState derives what a viewer sees from the persisted state and two
// read-time facts. Deletion of the quoted status wins over a block, and both
// win over whatever was persisted.
func EffectiveState(persisted models.QuoteState, quotedExists, blocked bool) models.QuoteState {
	switch {
	case !quotedExists:
		return models.QuoteStateDeleted
	case blocked:
		return models.QuoteStateUnauthorized
	default:
		return persisted
	}
}

// QuoteServiceParams groups QuoteService collaborators.
type QuoteServiceParams struct {
	Quotes        quoteStore
	Statuses      quoteStatusStore
	Relationships relationshipStore
	Notifier      distributionNotifier
	Metrics       *MetricsService
	Logger        *zap.Logger
	ListLimit     int
}

// QuoteService runs the quote approval state machine.
type QuoteService struct {
	quotes        quoteStore
	statuses      quoteStatusStore
	relationships relationshipStore
	notifier      distributionNotifier
	metrics       *MetricsService
	logger        *zap.Logger
	listLimit     int
}

// NewQuoteService constructs a QuoteService.
func NewQuoteService(params QuoteServiceParams) *QuoteService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := params.ListLimit
	if limit <= 0 {
		limit = 40
	}
	return &QuoteService{
		quotes:        params.Quotes,
		statuses:      params.Statuses,
		relationships: params.Relationships,
		notifier:      params.Notifier,
		metrics:       params.Metrics,
		logger:        logger,
		listLimit:     limit,
	}
}

// Effective computes the state of quote as seen by viewerID (zero for
// anonymous). The quoted status's own quotes are never consulted.
func (s *QuoteService) Effective(ctx context.Context, quote *models.Quote, viewerID int64) (models.QuoteState, error) {
	exists, err := s.statuses.Exists(ctx, quote.QuotedStatusID)
	if err != nil {
		return "", appErrors.Internal(err, "failed to check quoted status")
	}
	if !exists {
		return EffectiveState(quote.State, false, false), nil
	}

	blocked, err := s.relationships.IsBlocked(ctx, quote.AccountID, quote.QuotedAccountID)
	if err != nil {
		return "", appErrors.Internal(err, "failed to check block")
	}
	if !blocked && !isAnonymous(viewerID) && viewerID != quote.QuotedAccountID {
		if blocked, err = s.relationships.IsBlocked(ctx, viewerID, quote.QuotedAccountID); err != nil {
			return "", appErrors.Internal(err, "failed to check block")
		}
	}
	return EffectiveState(quote.State, true, blocked), nil
}

func (s *QuoteService) view(ctx context.Context, quote *models.Quote, viewerID int64) (*models.QuoteView, error) {
	state, err := s.Effective(ctx, quote, viewerID)
	if err != nil {
		return nil, err
	}
	return &models.QuoteView{Quote: *quote, EffectiveState: state}, nil
}

func (s *QuoteService) loadQuote(ctx context.Context, quotingStatusID int64) (*models.Quote, error) {
	quote, err := s.quotes.GetByStatusID(ctx, quotingStatusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("status %d does not quote anything", quotingStatusID))
		}
		return nil, appErrors.Internal(err, "failed to load quote")
	}
	return quote, nil
}

// Get returns the quote made by quotingStatusID.
func (s *QuoteService) Get(ctx context.Context, quotingStatusID, viewerID int64) (*models.QuoteView, error) {
	quote, err := s.loadQuote(ctx, quotingStatusID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, quote, viewerID)
}

// ListForStatus returns a page of quotes of quotedStatusID, newest first. The
// quoted author sees every quote; everyone else only sees accepted ones. The
// cursor follows the rows scanned, so a page emptied by the viewer filter
// still lets the client keep paging.
func (s *QuoteService) ListForStatus(ctx context.Context, quotedStatusID, viewerID, maxID int64, limit int) (*models.QuotePage, error) {
	quoted, err := loadStatus(ctx, s.statuses, quotedStatusID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}

	isAuthor := !isAnonymous(viewerID) && viewerID == quoted.AccountID
	filter := models.QuoteFilter{QuotedStatusID: quotedStatusID, MaxID: maxID, Limit: limit}
	if !isAuthor {
		filter.States = []models.QuoteState{models.QuoteStateAccepted}
	}
	quotes, err := s.quotes.ListByQuotedStatus(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list quotes")
	}

	page := &models.QuotePage{Items: make([]models.QuoteView, 0, len(quotes))}
	if len(quotes) > 0 && len(quotes) >= limit {
		next := quotes[len(quotes)-1].ID
		page.NextMaxID = &next
	}
	for i := range quotes {
		v, err := s.view(ctx, &quotes[i], viewerID)
		if err != nil {
			return nil, err
		}
		if !isAuthor && v.EffectiveState != models.QuoteStateAccepted {
			continue
		}
		page.Items = append(page.Items, *v)
	}
	return page, nil
}

// Request records that quotingStatusID embeds quotedStatusID and decides the
// outcome from the quoted status's policy: automatic acceptance, manual
// review (stays pending) or rejection.
func (s *QuoteService) Request(ctx context.Context, quotingStatusID, quotedStatusID, actorID int64) (*models.QuoteView, error) {
	if isAnonymous(actorID) {
		return nil, appErrors.ErrUnauthorized
	}
	quoting, err := loadStatus(ctx, s.statuses, quotingStatusID)
	if err != nil {
		return nil, err
	}
	if quoting.AccountID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can attach a quote")
	}
	quoted, err := loadStatus(ctx, s.statuses, quotedStatusID)
	if err != nil {
		return nil, err
	}

	bucket, err := s.evaluate(ctx, quoted, actorID)
	if err != nil {
		return nil, err
	}

	quote := &models.Quote{
		StatusID:        quoting.ID,
		AccountID:       actorID,
		QuotedStatusID:  quoted.ID,
		QuotedAccountID: quoted.AccountID,
		State:           models.QuoteStatePending,
	}
	if err := s.quotes.Create(ctx, quote); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "status already has a quote")
		}
		return nil, appErrors.Internal(err, "failed to create quote")
	}

	switch bucket {
	case quotepolicy.CurrentUserAutomatic:
		err = s.transition(ctx, quote, models.QuoteStatePending, models.QuoteStateAccepted)
	case quotepolicy.CurrentUserManual:
		s.logger.Info("quote awaiting approval", zap.Int64("quote_id", quote.ID), zap.Int64("quoted_account_id", quote.QuotedAccountID))
	default:
		err = s.transition(ctx, quote, models.QuoteStatePending, models.QuoteStateRejected)
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, quote, actorID)
}

// evaluate returns the policy bucket actorID falls into for quoted. A block
// in either direction denies; statuses that cannot carry a policy are
// quotable by their author only.
func (s *QuoteService) evaluate(ctx context.Context, quoted *models.Status, actorID int64) (quotepolicy.CurrentUser, error) {
	relation := quotepolicy.Relation{Anonymous: isAnonymous(actorID), IsAuthor: actorID == quoted.AccountID}
	if relation.Anonymous || relation.IsAuthor {
		return quotepolicy.Evaluate(quotepolicy.Policy{}, relation), nil
	}

	blocked, err := s.relationships.IsBlocked(ctx, actorID, quoted.AccountID)
	if err != nil {
		return "", appErrors.Internal(err, "failed to check block")
	}
	if blocked {
		return quotepolicy.CurrentUserDenied, nil
	}

	policy := quotepolicy.Policy{}
	if quoted.Visibility.AllowsQuotePolicy() {
		policy = quotepolicy.Decode(quoted.QuoteApprovalPolicy)
	}
	if policy.Automatic == quotepolicy.ScopeFollowers || policy.Manual == quotepolicy.ScopeFollowers {
		if relation.Follows, err = s.relationships.IsFollowing(ctx, actorID, quoted.AccountID); err != nil {
			return "", appErrors.Internal(err, "failed to check follow")
		}
	}
	return quotepolicy.Evaluate(policy, relation), nil
}

// Approve accepts a pending quote on behalf of the quoted author.
func (s *QuoteService) Approve(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error) {
	return s.decide(ctx, quotingStatusID, actorID, models.QuoteStatePending, models.QuoteStateAccepted)
}

// Reject declines a pending quote on behalf of the quoted author.
func (s *QuoteService) Reject(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error) {
	return s.decide(ctx, quotingStatusID, actorID, models.QuoteStatePending, models.QuoteStateRejected)
}

// Revoke withdraws an accepted quote. Only the quoted author may revoke;
// any other actor gets ErrForbidden and the row is left alone. A quote that
// is not accepted, including one that lost a concurrent revoke, yields
// ErrStateConflict. The quoting status is redistributed afterwards.
func (s *QuoteService) Revoke(ctx context.Context, quotingStatusID, actorID int64) (*models.QuoteView, error) {
	view, err := s.decide(ctx, quotingStatusID, actorID, models.QuoteStateAccepted, models.QuoteStateRevoked)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.QuoteRevoked(ctx, &view.Quote)
	}
	return view, nil
}

func (s *QuoteService) decide(ctx context.Context, quotingStatusID, actorID int64, from, to models.QuoteState) (*models.QuoteView, error) {
	if isAnonymous(actorID) {
		return nil, appErrors.ErrUnauthorized
	}
	quote, err := s.loadQuote(ctx, quotingStatusID)
	if err != nil {
		return nil, err
	}
	if quote.QuotedAccountID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the quoted author can change this quote")
	}
	if quote.State != from {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("quote is %s, expected %s", quote.State, from))
	}
	if err := s.transition(ctx, quote, from, to); err != nil {
		return nil, err
	}
	return s.view(ctx, quote, actorID)
}

func (s *QuoteService) transition(ctx context.Context, quote *models.Quote, from, to models.QuoteState) error {
	if !models.CanTransition(from, to) {
		return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("quote cannot move from %s to %s", from, to))
	}
	ok, err := s.quotes.UpdateState(ctx, quote.ID, from, to)
	if err != nil {
		return appErrors.Internal(err, "failed to update quote")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrStateConflict, "quote changed concurrently")
	}
	quote.State = to
	s.metrics.RecordQuoteTransition(string(from), string(to))
	s.logger.Info("quote transitioned",
		zap.Int64("quote_id", quote.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}
