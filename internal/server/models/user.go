// Package models holds the server-side persistence records.
package models

import (
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarKey    string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity returns the public view of u. avatarURL is resolved by the
// caller because it depends on object storage.
func (u *User) Identity(avatarURL string) models.Identity {
	return models.Identity{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Avatar:      avatarURL,
	}
}
