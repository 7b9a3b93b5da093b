package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestGet(t *testing.T) {
	q := `^SELECT\s+doc\s+FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"uid":"u1","onboardingData":{"budgetPreferences":[]}}`)))

		doc, err := repo.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", doc["uid"])
		assert.Equal(t, map[string]any{"budgetPreferences": []any{}}, doc["onboardingData"])
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u2").WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "u2")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("corrupt", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u3").
			WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`[1,2]`)))

		_, err := repo.Get(context.Background(), "u3")
		assert.ErrorContains(t, err, "decode profile")
	})
}

const mergeQ = `(?s)INSERT\s+INTO\s+profiles.*ON\s+CONFLICT\s+\(id\)\s+DO\s+UPDATE.*\$3::jsonb\s*\|\|\s*profiles\.doc\s*\|\|\s*\$2::jsonb.*RETURNING\s+doc`

func TestMerge(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(mergeQ).
		WithArgs("u1", `{"displayName":"Ada"}`, `{"createdAt":"2025-08-01T00:00:00Z"}`).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"uid":"u1","displayName":"Ada","createdAt":"2025-08-01T00:00:00Z"}`)))

	doc, err := repo.Merge(context.Background(), "u1", models.Patch{
		Set:         models.Document{"displayName": "Ada"},
		SetIfAbsent: models.Document{"createdAt": "2025-08-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc["displayName"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMerge_EmptyPartsAreObjects(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(mergeQ).
		WithArgs("u1", `{"a":1}`, `{}`).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"a":1}`)))

	_, err := repo.Merge(context.Background(), "u1", models.Patch{Set: models.Document{"a": 1}})
	require.NoError(t, err)
}

func TestMerge_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(mergeQ).WillReturnError(errors.New("db down"))

	_, err := repo.Merge(context.Background(), "u1", models.Patch{Set: models.Document{"a": 1}})
	assert.ErrorContains(t, err, "db error: db down")
}

func TestMerge_UnencodableValue(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.Merge(context.Background(), "u1", models.Patch{Set: models.Document{"ch": make(chan int)}})
	assert.ErrorContains(t, err, "encode patch")
}
