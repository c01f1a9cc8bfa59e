package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RelationshipRepository answers block and follow questions between accounts.
type RelationshipRepository struct {
	db *sqlx.DB
}

// NewRelationshipRepository constructs the repository.
func NewRelationshipRepository(db *sqlx.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// IsBlocked reports whether either account blocks the other.
func (r *RelationshipRepository) IsBlocked(ctx context.Context, a, b int64) (bool, error) {
	const query = `SELECT EXISTS(
		SELECT 1 FROM blocks
		WHERE (account_id = $1 AND target_account_id = $2)
		   OR (account_id = $2 AND target_account_id = $1))`
	var blocked bool
	if err := r.db.GetContext(ctx, &blocked, query, a, b); err != nil {
		return false, fmt.Errorf("check block %d/%d: %w", a, b, err)
	}
	return blocked, nil
}

// IsFollowing reports whether follower follows target.
func (r *RelationshipRepository) IsFollowing(ctx context.Context, follower, target int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM follows WHERE account_id = $1 AND target_account_id = $2)`
	var following bool
	if err := r.db.GetContext(ctx, &following, query, follower, target); err != nil {
		return false, fmt.Errorf("check follow %d->%d: %w", follower, target, err)
	}
	return following, nil
}

// BlockedAmong returns the accounts among others that block account or are
// blocked by it.
func (r *RelationshipRepository) BlockedAmong(ctx context.Context, account int64, others []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(others))
	if len(others) == 0 {
		return result, nil
	}
	const query = `SELECT target_account_id FROM blocks WHERE account_id = $1 AND target_account_id = ANY($2)
	UNION
	SELECT account_id FROM blocks WHERE target_account_id = $1 AND account_id = ANY($2)`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, account, pq.Array(others)); err != nil {
		return nil, fmt.Errorf("list blocks for %d: %w", account, err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// FollowedAmong returns the accounts among targets that follower follows.
func (r *RelationshipRepository) FollowedAmong(ctx context.Context, follower int64, targets []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(targets))
	if len(targets) == 0 {
		return result, nil
	}
	const query = `SELECT target_account_id FROM follows WHERE account_id = $1 AND target_account_id = ANY($2)`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, follower, pq.Array(targets)); err != nil {
		return nil, fmt.Errorf("list follows for %d: %w", follower, err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
