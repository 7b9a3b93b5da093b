// Package models holds the domain types shared by the BoilerBudget client
// and server: identities, profile documents, onboarding answers and the
// merge-write patch applied by the Profile Store.
package models

import "strings"

// Identity is the authenticated principal as reported by the identity
// provider. Empty strings mean "not provided".
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// FirstName returns the first word of the display name, or fallback when
// there is none.
func FirstName(displayName *string, fallback string) string {
	if displayName == nil {
		return fallback
	}
	fields := strings.Fields(*displayName)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}

// optional turns an empty string into nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
