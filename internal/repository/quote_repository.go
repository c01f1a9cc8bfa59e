package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/statusgraph/internal/models"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

const quoteColumns = `id, status_id, account_id, quoted_status_id, quoted_account_id, state, created_at, updated_at`

// QuoteRepository persists quote rows. A quoting status holds at most one quote.
type QuoteRepository struct {
	db *sqlx.DB
}

// NewQuoteRepository constructs the repository.
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// GetByStatusID fetches the quote made by the quoting status statusID.
func (r *QuoteRepository) GetByStatusID(ctx context.Context, statusID int64) (*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE status_id = $1`
	var quote models.Quote
	if err := r.db.GetContext(ctx, &quote, query, statusID); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create inserts quote and fills its id and timestamps.
func (r *QuoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	now := time.Now().UTC()
	if quote.CreatedAt.IsZero() {
		quote.CreatedAt = now
	}
	quote.UpdatedAt = now
	if quote.State == "" {
		quote.State = models.QuoteStatePending
	}
	const query = `INSERT INTO quotes (status_id, account_id, quoted_status_id, quoted_account_id, state, created_at, updated_at)
	VALUES (:status_id, :account_id, :quoted_status_id, :quoted_account_id, :state, :created_at, :updated_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, quote)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("create quote: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&quote.ID); err != nil {
			return fmt.Errorf("scan quote id: %w", err)
		}
	}
	return rows.Err()
}

// UpdateState moves quote id from expected to next. The boolean is false when
// the persisted state no longer equals expected.
func (r *QuoteRepository) UpdateState(ctx context.Context, id int64, expected, next models.QuoteState) (bool, error) {
	const query = `UPDATE quotes SET state = $3, updated_at = NOW() WHERE id = $1 AND state = $2`
	result, err := r.db.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("update quote state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check quote update rows: %w", err)
	}
	return rows == 1, nil
}

// ListByQuotedStatus returns quotes of a status, newest first.
func (r *QuoteRepository) ListByQuotedStatus(ctx context.Context, filter models.QuoteFilter) ([]models.Quote, error) {
	builder := strings.Builder{}
	args := []interface{}{filter.QuotedStatusID}
	builder.WriteString(`SELECT ` + quoteColumns + ` FROM quotes WHERE quoted_status_id = $1`)

	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, state := range filter.States {
			states[i] = string(state)
		}
		args = append(args, pq.Array(states))
		builder.WriteString(fmt.Sprintf(" AND state = ANY($%d)", len(args)))
	}
	if filter.MaxID > 0 {
		args = append(args, filter.MaxID)
		builder.WriteString(fmt.Sprintf(" AND id < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 40
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY id DESC LIMIT %d", limit))

	var quotes []models.Quote
	if err := r.db.SelectContext(ctx, &quotes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}
