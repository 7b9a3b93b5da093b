package profiles

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/boilerbudget/internal/dbx"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (models.Document, error) {
	query := `SELECT doc FROM profiles WHERE id = $1`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		return nil, dbx.Classify(err)
	}
	return decode(raw)
}

// mergeQuery computes setIfAbsent || existing || set, so set wins over the
// stored document and the stored document wins over setIfAbsent.
const mergeQuery = `
	INSERT INTO profiles (id, doc)
	VALUES ($1, $3::jsonb || $2::jsonb)
	ON CONFLICT (id) DO UPDATE
	SET doc = $3::jsonb || profiles.doc || $2::jsonb,
	    updated_at = now()
	RETURNING doc
`

func (r *PostgresRepository) Merge(ctx context.Context, id string, patch models.Patch) (models.Document, error) {
	set, err := encodeObject(patch.Set)
	if err != nil {
		return nil, err
	}
	setIfAbsent, err := encodeObject(patch.SetIfAbsent)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if err := r.db.QueryRowContext(ctx, mergeQuery, id, set, setIfAbsent).Scan(&raw); err != nil {
		return nil, dbx.Classify(err)
	}
	return decode(raw)
}

// encodeObject always yields a JSON object; jsonb || with a null scalar
// would build an array instead of merging.
func encodeObject(doc models.Document) (string, error) {
	if len(doc) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return string(b), nil
}

func decode(raw []byte) (models.Document, error) {
	doc := models.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return doc, nil
}
