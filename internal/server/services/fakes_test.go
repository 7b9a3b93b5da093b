package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/dbx"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	sm "github.com/dmitrijs2005/boilerbudget/internal/server/models"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*sm.User
	getErr  error
	makeErr error
}

func newFakeUsersRepo(us ...*sm.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*sm.User{}}
	for _, u := range us {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *sm.User) (*sm.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.makeErr != nil {
		return nil, f.makeErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*sm.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*sm.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetAvatarKey(ctx context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.AvatarKey = key
	return nil
}

type fakeRefreshRepo struct {
	findOut   *sm.RefreshToken
	findErr   error
	delErr    error
	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, userID)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*sm.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

// fakeProfilesRepo applies patches with the same precedence as the SQL
// statement.
type fakeProfilesRepo struct {
	mu       sync.Mutex
	docs     map[string]models.Document
	mergeErr error
	merges   int
}

func newFakeProfilesRepo() *fakeProfilesRepo {
	return &fakeProfilesRepo{docs: map[string]models.Document{}}
}

func (f *fakeProfilesRepo) Get(ctx context.Context, id string) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return doc, nil
}

func (f *fakeProfilesRepo) Merge(ctx context.Context, id string, patch models.Patch) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	f.merges++
	f.docs[id] = patch.Apply(f.docs[id])
	return f.docs[id], nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	p *fakeProfilesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profiles.Repository           { return m.p }

type fakeAvatarStore struct {
	putErr error
	getErr error
}

func (f *fakeAvatarStore) PresignPut(ctx context.Context, userID string) (string, string, error) {
	if f.putErr != nil {
		return "", "", f.putErr
	}
	return "avatars/" + userID + "/k", "https://s3.test/put/" + userID, nil
}

func (f *fakeAvatarStore) PresignGet(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "https://s3.test/get/" + key, nil
}
