// Package services contains client-side application services. The
// ProfileWriter turns onboarding answers and profile edits into
// merge-writes against the Profile Store.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

// ProfileStore applies a patch to the document with the given id in a
// single operation.
type ProfileStore interface {
	MergeSet(ctx context.Context, id string, patch models.Patch) error
}

type ProfileWriter struct {
	store  ProfileStore
	logger logging.Logger
	now    func() time.Time
}

func NewProfileWriter(store ProfileStore, l logging.Logger) *ProfileWriter {
	return &ProfileWriter{store: store, logger: l.With("module", "profile_writer"), now: time.Now}
}

// WithClock replaces the time source used for timestamps.
func (w *ProfileWriter) WithClock(now func() time.Time) *ProfileWriter {
	w.now = now
	return w
}

// UpsertOnboarding stores data together with a snapshot of the identity.
// createdAt is only written when the document does not have one yet.
func (w *ProfileWriter) UpsertOnboarding(ctx context.Context, id *models.Identity, data models.OnboardingData) error {
	if id == nil || id.ID == "" {
		return fmt.Errorf("upsert onboarding: %w", common.ErrorUnauthorized)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("upsert onboarding: %w", err)
	}

	onboarding, err := models.ToDocument(data)
	if err != nil {
		return err
	}

	ts := models.FormatTimestamp(w.now())
	set := models.IdentityFields(*id)
	set[models.FieldOnboardingData] = onboarding
	set[models.FieldUpdatedAt] = ts

	patch := models.Patch{
		Set:         set,
		SetIfAbsent: models.Document{models.FieldCreatedAt: ts},
	}
	if err := w.store.MergeSet(ctx, id.ID, patch); err != nil {
		return fmt.Errorf("upsert onboarding: %w", err)
	}

	w.logger.Info(ctx, "onboarding saved", "uid", id.ID, "plan", string(data.MealPlanType))
	return nil
}

// UpdateProfile writes the non-nil fields of u. Nothing happens when no
// one is signed in or u is empty.
func (w *ProfileWriter) UpdateProfile(ctx context.Context, id *models.Identity, u models.ProfileUpdate) error {
	if id == nil {
		return nil
	}

	set := u.Fields()
	if len(set) == 0 {
		return nil
	}
	set[models.FieldUID] = id.ID
	set[models.FieldUpdatedAt] = models.FormatTimestamp(w.now())

	if err := w.store.MergeSet(ctx, id.ID, models.Patch{Set: set}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
