package session

import "github.com/dmitrijs2005/boilerbudget/internal/models"

// ProfileStatus tells a missing profile apart from one that could not be
// fetched.
type ProfileStatus int

const (
	ProfileUnknown ProfileStatus = iota
	ProfileFound
	ProfileNotFound
	ProfileFetchFailed
)

func (s ProfileStatus) String() string {
	switch s {
	case ProfileFound:
		return "found"
	case ProfileNotFound:
		return "not-found"
	case ProfileFetchFailed:
		return "fetch-failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. Identity and Profile are shared
// with the controller and must not be mutated.
type State struct {
	Identity      *models.Identity
	Profile       *models.UserProfile
	Loading       bool
	ProfileStatus ProfileStatus
	// Err is the last profile fetch failure.
	Err error
}

// Onboarded reports whether the profile carries onboarding data.
func (s State) Onboarded() bool {
	return s.Profile.Onboarded()
}
