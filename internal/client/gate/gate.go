// Package gate decides, for a session state and a requested location,
// whether to show it, wait, or send the user elsewhere.
package gate

import "github.com/dmitrijs2005/boilerbudget/internal/client/session"

type Route string

const (
	RouteRoot       Route = "/"
	RouteLogin      Route = "/login"
	RouteOnboarding Route = "/onboarding"
	RouteDashboard  Route = "/dashboard"
)

type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuth
	RequireOnboarded
)

type routeInfo struct {
	requirement Requirement
	// guestOnly routes bounce users who already have what the route
	// collects: a session for /login, onboarding data for /onboarding.
	guestOnly bool
}

var routes = map[Route]routeInfo{
	RouteLogin:      {requirement: RequireNone, guestOnly: true},
	RouteOnboarding: {requirement: RequireAuth, guestOnly: true},
	RouteDashboard:  {requirement: RequireOnboarded},
}

// Known reports whether r is a screen rather than a redirect-only path.
func Known(r Route) bool {
	_, ok := routes[r]
	return ok
}

type Action int

const (
	ActionLoading Action = iota
	ActionAllow
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionRedirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Decision is the outcome of Decide. Target is set for redirects. From is
// the location the user originally asked for, carried through login.
// Degraded marks decisions made without a profile because the fetch failed.
type Decision struct {
	Action   Action
	Target   Route
	From     Route
	Degraded bool
}

// Decide is pure: the same inputs always give the same Decision.
func Decide(st session.State, route, from Route) Decision {
	if st.Loading {
		return Decision{Action: ActionLoading}
	}

	info, ok := routes[route]
	if !ok {
		return Decision{Action: ActionRedirect, Target: RouteLogin}
	}

	degraded := st.Identity != nil && st.ProfileStatus == session.ProfileFetchFailed
	onboarded := st.Onboarded()

	if info.requirement >= RequireAuth && st.Identity == nil {
		return Decision{Action: ActionRedirect, Target: RouteLogin, From: route}
	}

	if info.requirement == RequireOnboarded && !onboarded {
		return Decision{Action: ActionRedirect, Target: RouteOnboarding, From: route, Degraded: degraded}
	}

	if info.guestOnly && st.Identity != nil {
		switch route {
		case RouteLogin:
			if !onboarded {
				return Decision{Action: ActionRedirect, Target: RouteOnboarding, From: from, Degraded: degraded}
			}
			return Decision{Action: ActionRedirect, Target: landing(from)}
		case RouteOnboarding:
			if onboarded {
				return Decision{Action: ActionRedirect, Target: RouteDashboard}
			}
		}
	}

	return Decision{Action: ActionAllow, Degraded: degraded}
}

// landing is where a signed-in, onboarded user goes after login.
func landing(from Route) Route {
	if info, ok := routes[from]; ok && info.requirement >= RequireAuth {
		return from
	}
	return RouteDashboard
}
