package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/statusgraph/internal/models"
)

const statusColumns = `id, in_reply_to_id, account_id, visibility, quote_approval_policy, text, created_at, deleted_at`

// StatusRepository reads the status graph. Soft-deleted rows are invisible to
// every method.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// GetByID fetches a live status. Missing rows yield sql.ErrNoRows.
func (r *StatusRepository) GetByID(ctx context.Context, id int64) (*models.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM statuses WHERE id = $1 AND deleted_at IS NULL`
	var status models.Status
	if err := r.db.GetContext(ctx, &status, query, id); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetMany fetches the live statuses among ids, in id order. Unknown ids are
// skipped.
func (r *StatusRepository) GetMany(ctx context.Context, ids []int64) ([]models.Status, error) {
	if len(ids) == 0 {
		return []models.Status{}, nil
	}
	query := `SELECT ` + statusColumns + ` FROM statuses WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY id`
	var statuses []models.Status
	if err := r.db.SelectContext(ctx, &statuses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get statuses: %w", err)
	}
	return statuses, nil
}

// ChildrenOf lists direct replies of id in ascending id order.
func (r *StatusRepository) ChildrenOf(ctx context.Context, id int64) ([]models.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM statuses WHERE in_reply_to_id = $1 AND deleted_at IS NULL ORDER BY id`
	var children []models.Status
	if err := r.db.SelectContext(ctx, &children, query, id); err != nil {
		return nil, fmt.Errorf("list children of %d: %w", id, err)
	}
	return children, nil
}

// Exists reports whether a live status with id exists.
func (r *StatusRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM statuses WHERE id = $1 AND deleted_at IS NULL)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check status %d: %w", id, err)
	}
	return exists, nil
}

// UpdateQuotePolicy stores next only while the row still holds expected. The
// boolean is false when the row changed or vanished in between.
func (r *StatusRepository) UpdateQuotePolicy(ctx context.Context, id, expected, next int64) (bool, error) {
	const query = `UPDATE statuses SET quote_approval_policy = $3, updated_at = NOW()
	WHERE id = $1 AND quote_approval_policy = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("update quote policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check quote policy update rows: %w", err)
	}
	return rows == 1, nil
}

// ListThreadReplies returns every live status below rootID with a single
// recursive query, ordered by id. The path guard keeps cyclic data finite.
func (r *StatusRepository) ListThreadReplies(ctx context.Context, rootID int64, limit int) ([]models.Status, error) {
	if limit <= 0 || limit > 5000 {
		limit = 500
	}
	query := `WITH RECURSIVE thread AS (
		SELECT ` + statusColumns + `, ARRAY[id] AS path
		FROM statuses WHERE in_reply_to_id = $1 AND deleted_at IS NULL
		UNION ALL
		SELECT s.id, s.in_reply_to_id, s.account_id, s.visibility, s.quote_approval_policy, s.text, s.created_at, s.deleted_at, t.path || s.id
		FROM statuses s JOIN thread t ON s.in_reply_to_id = t.id
		WHERE s.deleted_at IS NULL AND NOT s.id = ANY(t.path) AND s.id <> $1
	)
	SELECT ` + statusColumns + ` FROM thread ORDER BY id LIMIT $2`
	var replies []models.Status
	if err := r.db.SelectContext(ctx, &replies, query, rootID, limit); err != nil {
		return nil, fmt.Errorf("list thread replies of %d: %w", rootID, err)
	}
	return replies, nil
}
