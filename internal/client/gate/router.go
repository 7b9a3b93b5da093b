package gate

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/boilerbudget/internal/client/session"
	"github.com/dmitrijs2005/boilerbudget/internal/logging"
)

// StateSource is the part of session.Controller the router watches.
type StateSource interface {
	State() session.State
	Subscribe() (<-chan session.State, func())
}

// View is what the router settles on: the screen to show and the decision
// that allowed it (or ActionLoading while the session resolves).
type View struct {
	Location Route
	// From is the destination the user is held back from while on login
	// or onboarding.
	From     Route
	Decision Decision
	State    session.State
}

// maxRedirects bounds a single resolution; the route table cannot loop,
// but a bad state should not spin.
const maxRedirects = 4

// Router holds the current location and re-evaluates it whenever the
// session changes or the user navigates.
type Router struct {
	source StateSource
	logger logging.Logger

	mu       sync.Mutex
	location Route
	from     Route
	view     View

	subMu sync.Mutex
	subs  []chan View
}

func NewRouter(src StateSource, initial Route, l logging.Logger) *Router {
	r := &Router{source: src, logger: l.With("module", "router"), location: initial}
	r.evaluate(src.State())
	return r
}

// Start re-evaluates on every session change until ctx is done.
func (r *Router) Start(ctx context.Context) {
	ch, unsubscribe := r.source.Subscribe()
	r.evaluate(r.source.State())

	go func() {
		defer unsubscribe()
		for {
			select {
			case st := <-ch:
				r.evaluate(st)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Navigate moves to route and returns the resulting view.
func (r *Router) Navigate(route Route) View {
	r.mu.Lock()
	r.location = route
	r.from = ""
	r.mu.Unlock()
	return r.evaluate(r.source.State())
}

// Refresh re-evaluates the current location against the latest state.
func (r *Router) Refresh() View {
	return r.evaluate(r.source.State())
}

func (r *Router) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Views streams every view change, latest wins.
func (r *Router) Views() (<-chan View, func()) {
	ch := make(chan View, 1)
	r.subMu.Lock()
	r.subs = append(r.subs, ch)
	r.subMu.Unlock()

	return ch, func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		for i, c := range r.subs {
			if c == ch {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

func (r *Router) evaluate(st session.State) View {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.mu.Lock()
	loc, from := r.location, r.from
	d := Decide(st, loc, from)
	for i := 0; d.Action == ActionRedirect && i < maxRedirects; i++ {
		// From survives only while the user is bounced through login
		if d.From != "" {
			from = d.From
		}
		if d.Target != RouteLogin && d.Target != RouteOnboarding {
			from = ""
		}
		loc = d.Target
		d = Decide(st, loc, from)
	}
	changed := loc != r.view.Location || d != r.view.Decision
	r.location, r.from = loc, from
	r.view = View{Location: loc, From: from, Decision: d, State: st}
	v := r.view
	r.mu.Unlock()

	if changed {
		r.logger.Debug(context.Background(), "route", "location", string(loc), "action", d.Action.String(), "degraded", d.Degraded)
	}

	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
	return v
}
