package client

import (
	"context"

	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
)

// Client is the client-side contract with the BoilerBudget backend. It
// carries the session tokens and attaches them to every call.
type Client interface {
	Close() error
	Register(ctx context.Context, email, password, displayName string) (*rpc.Session, error)
	Login(ctx context.Context, email, password string) (*rpc.Session, error)
	WhoAmI(ctx context.Context) (models.Identity, error)
	SetTokens(t rpc.Tokens)
	Tokens() rpc.Tokens
	Ping(ctx context.Context) error

	// Profile Store
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	MergeSet(ctx context.Context, id string, patch models.Patch) error
	AvatarUploadURL(ctx context.Context) (key string, url string, err error)
}
