package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document field names of a stored profile.
const (
	FieldUID            = "uid"
	FieldEmail          = "email"
	FieldDisplayName    = "displayName"
	FieldPhotoURL       = "photoURL"
	FieldOnboardingData = "onboardingData"
	FieldCreatedAt      = "createdAt"
	FieldUpdatedAt      = "updatedAt"
)

// Document is a profile in its stored, JSON-compatible form.
type Document = map[string]any

// UserProfile is the persisted per-user document. A non-nil OnboardingData
// means the user has completed onboarding.
type UserProfile struct {
	UID            string          `json:"uid"`
	Email          *string         `json:"email"`
	DisplayName    *string         `json:"displayName"`
	PhotoURL       *string         `json:"photoURL"`
	OnboardingData *OnboardingData `json:"onboardingData,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Onboarded reports whether p carries onboarding answers. Safe on nil.
func (p *UserProfile) Onboarded() bool {
	return p != nil && p.OnboardingData != nil
}

// ProfileUpdate lists the fields UpdateProfile may touch. Nil fields are
// left unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Email       *string
	PhotoURL    *string
}

// Fields returns the JSON field set of u.
func (u ProfileUpdate) Fields() Document {
	out := Document{}
	if u.DisplayName != nil {
		out[FieldDisplayName] = *u.DisplayName
	}
	if u.Email != nil {
		out[FieldEmail] = *u.Email
	}
	if u.PhotoURL != nil {
		out[FieldPhotoURL] = *u.PhotoURL
	}
	return out
}

// IdentityFields returns the identity snapshot stored on a profile:
// uid, email, displayName and photoURL (null when the provider gave none).
func IdentityFields(id Identity) Document {
	return Document{
		FieldUID:         id.ID,
		FieldEmail:       nullable(id.Email),
		FieldDisplayName: nullable(id.DisplayName),
		FieldPhotoURL:    nullable(id.Avatar),
	}
}

func nullable(s string) any {
	if p := optional(s); p != nil {
		return *p
	}
	return nil
}

// ToDocument converts any JSON-marshalable value into its generic map form.
func ToDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// ProfileFromDocument decodes a stored document.
func ProfileFromDocument(doc Document) (*UserProfile, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal profile document: %w", err)
	}
	var p UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode profile document: %w", err)
	}
	return &p, nil
}

// FormatTimestamp is the timestamp encoding used inside documents.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
