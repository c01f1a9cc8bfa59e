package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

type statusGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Status, error)
}

// loadStatus fetches id and maps absence to ErrNotFound.
func loadStatus(ctx context.Context, store statusGetter, id int64) (*models.Status, error) {
	status, err := store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("status %d not found", id))
		}
		return nil, appErrors.Internal(err, "failed to load status")
	}
	return status, nil
}

// isAnonymous reports whether viewerID carries no account.
func isAnonymous(viewerID int64) bool {
	return viewerID <= 0
}
