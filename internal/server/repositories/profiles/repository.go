// Package profiles stores profile documents as PostgreSQL JSONB and
// applies merge-write patches in a single statement.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

type Repository interface {
	// Get returns the stored document or common.ErrorNotFound.
	Get(ctx context.Context, id string) (models.Document, error)

	// Merge applies patch (creating the document if needed) and returns
	// the resulting document.
	Merge(ctx context.Context, id string, patch models.Patch) (models.Document, error)
}
