package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/server/repositories/repomanager"
)

// ProfileService is the server side of the Profile Store.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	avatars     AvatarStore
	logger      logging.Logger
	now         func() time.Time
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, avatars AvatarStore, l logging.Logger) *ProfileService {
	return &ProfileService{
		db:          db,
		repomanager: m,
		avatars:     avatars,
		logger:      l.With("module", "profile_service"),
		now:         time.Now,
	}
}

// Get returns the caller's document or common.ErrorNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (models.Document, error) {
	doc, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading profile: %w", err)
	}
	return doc, nil
}

// Merge validates patch and applies it to the caller's document. A patch
// may not set uid to anything but the caller's id, and createdAt may only
// arrive through SetIfAbsent. updatedAt is always stamped here.
func (s *ProfileService) Merge(ctx context.Context, userID string, patch models.Patch) (models.Document, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	for _, part := range []models.Document{patch.Set, patch.SetIfAbsent} {
		if uid, ok := part[models.FieldUID]; ok && uid != userID {
			return nil, fmt.Errorf("%w: uid mismatch", common.ErrorForbidden)
		}
		if err := checkTimestamps(part); err != nil {
			return nil, err
		}
	}
	if _, ok := patch.Set[models.FieldCreatedAt]; ok {
		return nil, fmt.Errorf("%w: %s may only be set if absent", common.ErrorIncorrectMetadata, models.FieldCreatedAt)
	}

	stamped := stampPatch(patch, models.FormatTimestamp(s.now()))

	doc, err := s.repomanager.Profiles(s.db).Merge(ctx, userID, stamped)
	if err != nil {
		return nil, fmt.Errorf("error merging profile: %w", err)
	}

	s.logger.Debug(ctx, "profile merged", "uid", userID, "fields", len(patch.Set)+len(patch.SetIfAbsent))
	return doc, nil
}

func checkTimestamps(part models.Document) error {
	for _, field := range []string{models.FieldCreatedAt, models.FieldUpdatedAt} {
		v, ok := part[field]
		if !ok {
			continue
		}
		str, isString := v.(string)
		if !isString {
			return fmt.Errorf("%w: %s must be an RFC 3339 string", common.ErrorIncorrectMetadata, field)
		}
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			return fmt.Errorf("%w: %s: %v", common.ErrorIncorrectMetadata, field, err)
		}
	}
	return nil
}

// stampPatch returns a copy of patch with updatedAt set to ts and createdAt
// defaulted to ts when the document has none.
func stampPatch(patch models.Patch, ts string) models.Patch {
	out := models.Patch{
		Set:         make(models.Document, len(patch.Set)+1),
		SetIfAbsent: make(models.Document, len(patch.SetIfAbsent)+1),
	}
	for k, v := range patch.Set {
		out.Set[k] = v
	}
	for k, v := range patch.SetIfAbsent {
		out.SetIfAbsent[k] = v
	}
	delete(out.SetIfAbsent, models.FieldUpdatedAt)
	out.Set[models.FieldUpdatedAt] = ts
	if _, ok := out.SetIfAbsent[models.FieldCreatedAt]; !ok {
		out.SetIfAbsent[models.FieldCreatedAt] = ts
	}
	return out
}

// AvatarUploadURL allocates a storage key for a new avatar, records it on
// the account and returns it with a presigned PUT URL.
func (s *ProfileService) AvatarUploadURL(ctx context.Context, userID string) (key string, url string, err error) {
	key, url, err = s.avatars.PresignPut(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("error presigning upload: %w", err)
	}
	if err := s.repomanager.Users(s.db).SetAvatarKey(ctx, userID, key); err != nil {
		return "", "", fmt.Errorf("error saving avatar key: %w", err)
	}
	return key, url, nil
}

// AvatarURL returns a presigned GET URL for key.
func (s *ProfileService) AvatarURL(ctx context.Context, key string) (string, error) {
	url, err := s.avatars.PresignGet(ctx, key)
	if err != nil {
		return "", fmt.Errorf("error presigning download: %w", err)
	}
	return url, nil
}
