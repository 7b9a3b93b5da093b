// Package metadata is the client's local key/value store. It keeps the
// persisted session (tokens and the last known identity) between runs.
package metadata

import (
	"context"
)

// Keys written by the identity provider.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIdentity     = "identity"
)

// Repository reads and writes string values by key. Get reports a missing
// key as common.ErrorNotFound.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
