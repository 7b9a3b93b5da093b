package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/timex"
)

// memStore applies patches the way the server does.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	merges []models.Patch
	err    error
}

func newMemStore() *memStore { return &memStore{docs: map[string]models.Document{}} }

func (m *memStore) MergeSet(ctx context.Context, id string, patch models.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.merges = append(m.merges, patch)
	m.docs[id] = patch.Apply(m.docs[id])
	return nil
}

func (m *memStore) profile(t *testing.T, id string) *models.UserProfile {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := models.ProfileFromDocument(m.docs[id])
	require.NoError(t, err)
	return p
}

var (
	t0   = time.Date(2024, 8, 19, 15, 0, 0, 0, time.UTC)
	pete = &models.Identity{ID: "u1", DisplayName: "Purdue Pete", Email: "pete@purdue.edu"}
)

func sample() models.OnboardingData {
	return models.OnboardingData{
		MealPlanType:           models.MealPlan8Track,
		DiningDollarBalance:    450.25,
		MealSwipesRemaining:    8,
		EstimatedMonthlyIncome: 600,
		SemesterStartDate:      timex.DateOf(t0),
		SemesterEndDate:        timex.DateOf(t0).AddDays(120),
		BudgetPreferences:      []models.BudgetCategory{models.CategoryHealthWellness},
		CompletedAt:            t0,
	}
}

func newWriter(store ProfileStore, now time.Time) *ProfileWriter {
	return NewProfileWriter(store, logging.Discard()).WithClock(func() time.Time { return now })
}

func TestUpsertOnboarding_RoundTrip(t *testing.T) {
	s := newMemStore()
	w := newWriter(s, t0)

	data := sample()
	require.NoError(t, w.UpsertOnboarding(context.Background(), pete, data))

	p := s.profile(t, "u1")
	require.True(t, p.Onboarded())
	assert.Equal(t, data, *p.OnboardingData)
	assert.Equal(t, "u1", p.UID)
	assert.Equal(t, "Purdue Pete", *p.DisplayName)
	assert.Nil(t, p.PhotoURL)
	assert.True(t, p.CreatedAt.Equal(t0))
	assert.True(t, p.UpdatedAt.Equal(t0))
}

func TestUpsertOnboarding_SinglePatchShape(t *testing.T) {
	s := newMemStore()
	require.NoError(t, newWriter(s, t0).UpsertOnboarding(context.Background(), pete, sample()))

	require.Len(t, s.merges, 1)
	patch := s.merges[0]
	assert.ElementsMatch(t,
		[]string{models.FieldUID, models.FieldEmail, models.FieldDisplayName, models.FieldPhotoURL, models.FieldOnboardingData, models.FieldUpdatedAt},
		keys(patch.Set))
	assert.Equal(t, []string{models.FieldCreatedAt}, keys(patch.SetIfAbsent))
}

func TestUpsertOnboarding_KeepsCreatedAt(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()
	require.NoError(t, newWriter(s, t0).UpsertOnboarding(ctx, pete, sample()))

	later := t0.Add(48 * time.Hour)
	data := sample()
	data.DiningDollarBalance = 10
	require.NoError(t, newWriter(s, later).UpsertOnboarding(ctx, pete, data))

	p := s.profile(t, "u1")
	assert.True(t, p.CreatedAt.Equal(t0))
	assert.True(t, p.UpdatedAt.Equal(later))
	assert.Equal(t, 10.0, p.OnboardingData.DiningDollarBalance)
}

func TestUpsertOnboarding_EmptyPreferencesStoredAsArray(t *testing.T) {
	s := newMemStore()
	data := sample()
	data.BudgetPreferences = nil
	require.NoError(t, newWriter(s, t0).UpsertOnboarding(context.Background(), pete, data))

	onboarding := s.docs["u1"][models.FieldOnboardingData].(models.Document)
	assert.Equal(t, []any{}, onboarding["budgetPreferences"])
}

func TestUpsertOnboarding_Rejects(t *testing.T) {
	ctx := context.Background()

	s := newMemStore()
	w := newWriter(s, t0)
	require.ErrorIs(t, w.UpsertOnboarding(ctx, nil, sample()), common.ErrorUnauthorized)

	bad := sample()
	bad.SemesterEndDate = bad.SemesterStartDate.AddDays(-1)
	require.ErrorIs(t, w.UpsertOnboarding(ctx, pete, bad), common.ErrorValidation)
	assert.Empty(t, s.merges)

	s.err = errors.New("unavailable")
	require.ErrorContains(t, w.UpsertOnboarding(ctx, pete, sample()), "upsert onboarding")
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	require.NoError(t, newWriter(s, t0).UpsertOnboarding(ctx, pete, sample()))

	name := "Pete Purdue"
	later := t0.Add(time.Hour)
	require.NoError(t, newWriter(s, later).UpdateProfile(ctx, pete, models.ProfileUpdate{DisplayName: &name}))

	p := s.profile(t, "u1")
	assert.Equal(t, "Pete Purdue", *p.DisplayName)
	assert.Equal(t, "pete@purdue.edu", *p.Email)
	assert.True(t, p.UpdatedAt.Equal(later))
	assert.True(t, p.Onboarded())
}

func TestUpdateProfile_NoOps(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	w := newWriter(s, t0)
	name := "x"

	require.NoError(t, w.UpdateProfile(ctx, nil, models.ProfileUpdate{DisplayName: &name}))
	require.NoError(t, w.UpdateProfile(ctx, pete, models.ProfileUpdate{}))
	assert.Empty(t, s.merges)
}

func keys(d models.Document) []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	return out
}
