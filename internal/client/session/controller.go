// Package session holds the client's view of who is signed in and what
// their profile looks like. Only the Controller mutates that state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/boilerbudget/internal/client/identity"
	"github.com/dmitrijs2005/boilerbudget/internal/common"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
	"github.com/dmitrijs2005/boilerbudget/internal/models"
)

var (
	// ErrSignInFailed wraps every interactive sign-in failure.
	ErrSignInFailed = errors.New("sign-in failed")

	ErrNoIdentityProvider = errors.New("session: identity provider is required")
	ErrNoProfileStore     = errors.New("session: profile store is required")
)

// IdentityProvider is the part of identity.Provider the controller uses.
type IdentityProvider interface {
	Subscribe(fn identity.Listener) func()
	SignInInteractive(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// ProfileStore reads profiles. A missing profile is common.ErrorNotFound.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.UserProfile, error)
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l.With("module", "session") }
}

// WithFetchTimeout bounds each profile fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.fetchTimeout = d }
}

type Controller struct {
	provider     IdentityProvider
	store        ProfileStore
	logger       logging.Logger
	fetchTimeout time.Duration

	mu    sync.Mutex
	state State
	// gen identifies the latest identity change or refresh; fetch results
	// carrying an older gen are dropped.
	gen uint64
	ctx context.Context

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int
}

func NewController(p IdentityProvider, s ProfileStore, opts ...Option) (*Controller, error) {
	if p == nil {
		return nil, ErrNoIdentityProvider
	}
	if s == nil {
		return nil, ErrNoProfileStore
	}

	c := &Controller{
		provider: p,
		store:    s,
		logger:   logging.Discard(),
		state:    State{Loading: true},
		ctx:      context.Background(),
		subs:     make(map[int]chan State),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Start subscribes to the identity provider until ctx is done. Profile
// fetches started by identity changes run under ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	unsubscribe := c.provider.Subscribe(c.onIdentity)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}

func (c *Controller) onIdentity(id *models.Identity) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	ctx := c.ctx

	if id == nil {
		c.state = State{}
		c.mu.Unlock()
		c.logger.Debug(ctx, "signed out")
		c.publish()
		return
	}

	c.state = State{Identity: id, Loading: true}
	c.mu.Unlock()
	c.publish()

	go c.fetch(ctx, gen, id.ID)
}

func (c *Controller) fetch(ctx context.Context, gen uint64, uid string) error {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	profile, err := c.store.Get(ctx, uid)
	return c.apply(ctx, gen, profile, err)
}

// apply stores a fetch result if gen is still current. The returned error
// is the fetch failure, if any. A missing profile is not a failure, and
// neither is anything from a superseded fetch.
func (c *Controller) apply(ctx context.Context, gen uint64, profile *models.UserProfile, err error) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug(ctx, "dropping stale profile fetch", "gen", gen)
		return nil
	}

	st := c.state
	st.Loading = false
	st.Err = nil
	switch {
	case err == nil:
		st.Profile = profile
		st.ProfileStatus = ProfileFound
	case errors.Is(err, common.ErrorNotFound):
		st.Profile = nil
		st.ProfileStatus = ProfileNotFound
		err = nil
	default:
		st.Profile = nil
		st.ProfileStatus = ProfileFetchFailed
		st.Err = err
	}
	c.state = st
	c.mu.Unlock()

	if st.Err != nil {
		c.logger.Warn(ctx, "profile fetch failed", "uid", st.Identity.ID, "error", err)
	}
	c.publish()
	return err
}

// SignIn runs the provider's interactive sign-in. Success shows up through
// the identity subscription, never through the return value.
func (c *Controller) SignIn(ctx context.Context) error {
	if err := c.provider.SignInInteractive(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSignInFailed, err)
	}
	return nil
}

// SignOut asks the provider to forget the identity. The provider notifies
// synchronously, so the cleared state is in place when SignOut returns.
func (c *Controller) SignOut(ctx context.Context) error {
	return c.provider.SignOut(ctx)
}

// RefreshProfile fetches the profile of the current identity and waits for
// it. It is a no-op when nobody is signed in.
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	id := c.state.Identity
	if id == nil {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.state.Loading = true
	c.mu.Unlock()
	c.publish()

	return c.fetch(ctx, gen, id.ID)
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that always holds the latest state; older
// undelivered states are replaced. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish() {
	// snapshot under subMu so a later publish can never deliver an older state
	c.subMu.Lock()
	defer c.subMu.Unlock()

	st := c.State()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
