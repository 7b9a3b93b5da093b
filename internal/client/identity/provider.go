// Package identity is the client's Identity Provider. It owns the
// signed-in identity, persists the session in the local metadata store and
// tells subscribers about every change.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/boilerbudget/internal/client/client"
	"github.com/dmitrijs2005/boilerbudget/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
	"github.com/dmitrijs2005/boilerbudget/internal/rpc"
)

// ErrCancelled is returned when the user backs out of a credentials prompt.
var ErrCancelled = errors.New("sign-in cancelled")

// Backend is the part of client.Client the provider talks to.
type Backend interface {
	Register(ctx context.Context, email, password, displayName string) (*rpc.Session, error)
	Login(ctx context.Context, email, password string) (*rpc.Session, error)
	WhoAmI(ctx context.Context) (models.Identity, error)
	SetTokens(t rpc.Tokens)
}

// Prompt collects credentials from the user. register asks for a display
// name as well.
type Prompt interface {
	Credentials(ctx context.Context, register bool) (rpc.Credentials, error)
}

// Listener receives the current identity, nil meaning signed out.
type Listener func(id *models.Identity)

type Provider struct {
	backend Backend
	store   metadata.Repository
	prompt  Prompt
	logger  logging.Logger

	// notifyMu serialises deliveries so listeners see changes in order.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	current   *models.Identity
	resolved  bool
	listeners map[int]Listener
	nextID    int
}

func NewProvider(b Backend, store metadata.Repository, prompt Prompt, l logging.Logger) *Provider {
	return &Provider{
		backend:   b,
		store:     store,
		prompt:    prompt,
		logger:    l.With("module", "identity"),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn. When the identity is already resolved fn is
// called at once with it. The returned func unsubscribes.
func (p *Provider) Subscribe(fn Listener) func() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	resolved, current := p.resolved, p.current
	p.mu.Unlock()

	if resolved {
		fn(current)
	}

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Current returns the signed-in identity or nil.
func (p *Provider) Current() *models.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) notify(id *models.Identity) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.current = id
	p.resolved = true
	ls := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(id)
	}
}

// Restore resumes a persisted session. It always ends with exactly one
// notification. A session the server rejects is wiped; an unreachable
// server falls back to the cached identity.
func (p *Provider) Restore(ctx context.Context) error {
	tokens, err := p.loadTokens(ctx)
	if err != nil {
		p.notify(nil)
		if errors.Is(err, client.ErrLocalDataNotAvailable) {
			return nil
		}
		return err
	}

	p.backend.SetTokens(tokens)

	id, err := p.backend.WhoAmI(ctx)
	switch {
	case err == nil:
		if err := p.saveIdentity(ctx, id); err != nil {
			p.logger.Warn(ctx, "caching identity", "error", err)
		}
		p.notify(&id)
		return nil

	case errors.Is(err, client.ErrUnavailable):
		cached, cerr := p.loadIdentity(ctx)
		if cerr != nil {
			p.notify(nil)
			return fmt.Errorf("restore offline: %w", cerr)
		}
		p.logger.Info(ctx, "server unavailable, using cached identity", "uid", cached.ID)
		p.notify(cached)
		return nil

	default:
		p.logger.Info(ctx, "stored session rejected", "error", err)
		p.clear(ctx)
		p.notify(nil)
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil
		}
		return err
	}
}

// SignInInteractive prompts for credentials and logs in. The new identity
// is delivered through the subscription.
func (p *Provider) SignInInteractive(ctx context.Context) error {
	creds, err := p.prompt.Credentials(ctx, false)
	if err != nil {
		return err
	}

	sess, err := p.backend.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return p.startSession(ctx, sess)
}

// Register prompts for account details, creates the account and signs in.
func (p *Provider) Register(ctx context.Context) error {
	creds, err := p.prompt.Credentials(ctx, true)
	if err != nil {
		return err
	}

	sess, err := p.backend.Register(ctx, creds.Email, creds.Password, creds.DisplayName)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return p.startSession(ctx, sess)
}

// Reload re-reads the identity from the server, e.g. after an avatar
// change, and notifies subscribers.
func (p *Provider) Reload(ctx context.Context) error {
	id, err := p.backend.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	if err := p.saveIdentity(ctx, id); err != nil {
		p.logger.Warn(ctx, "caching identity", "error", err)
	}
	p.notify(&id)
	return nil
}

// SignOut forgets the session locally and notifies subscribers. Store
// errors are logged; the user is signed out regardless.
func (p *Provider) SignOut(ctx context.Context) error {
	p.clear(ctx)
	p.notify(nil)
	return nil
}

// PersistTokens stores tokens obtained by a transparent refresh. Its
// signature matches client.TokenListener.
func (p *Provider) PersistTokens(ctx context.Context, t rpc.Tokens) {
	if err := p.saveTokens(ctx, t); err != nil {
		p.logger.Warn(ctx, "persisting refreshed tokens", "error", err)
	}
}

func (p *Provider) startSession(ctx context.Context, sess *rpc.Session) error {
	p.backend.SetTokens(sess.Tokens)

	if err := p.saveTokens(ctx, sess.Tokens); err != nil {
		p.logger.Warn(ctx, "persisting tokens", "error", err)
	}
	if err := p.saveIdentity(ctx, sess.Identity); err != nil {
		p.logger.Warn(ctx, "caching identity", "error", err)
	}

	id := sess.Identity
	p.logger.Info(ctx, "signed in", "uid", id.ID)
	p.notify(&id)
	return nil
}

func (p *Provider) clear(ctx context.Context) {
	p.backend.SetTokens(rpc.Tokens{})
	if err := p.store.Delete(ctx, metadata.KeyAccessToken, metadata.KeyRefreshToken, metadata.KeyIdentity); err != nil {
		p.logger.Warn(ctx, "clearing session", "error", err)
	}
}

func (p *Provider) saveTokens(ctx context.Context, t rpc.Tokens) error {
	if err := p.store.Set(ctx, metadata.KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	return p.store.Set(ctx, metadata.KeyRefreshToken, t.RefreshToken)
}

func (p *Provider) loadTokens(ctx context.Context) (rpc.Tokens, error) {
	var t rpc.Tokens
	var err error

	if t.AccessToken, err = p.store.Get(ctx, metadata.KeyAccessToken); err != nil {
		return t, localErr(err)
	}
	if t.RefreshToken, err = p.store.Get(ctx, metadata.KeyRefreshToken); err != nil {
		return t, localErr(err)
	}
	return t, nil
}

func (p *Provider) saveIdentity(ctx context.Context, id models.Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, metadata.KeyIdentity, string(b))
}

func (p *Provider) loadIdentity(ctx context.Context) (*models.Identity, error) {
	raw, err := p.store.Get(ctx, metadata.KeyIdentity)
	if err != nil {
		return nil, localErr(err)
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrLocalDataNotAvailable, err)
	}
	if id.ID == "" {
		return nil, client.ErrLocalDataNotAvailable
	}
	return &id, nil
}

func localErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return client.ErrLocalDataNotAvailable
	}
	return err
}
