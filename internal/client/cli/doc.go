// Package cli is the interactive BoilerBudget terminal client.
//
// It wires configuration, the local session store, the gRPC backend, the
// session controller and the route gate, then runs a read–eval–print loop
// that shows one of three screens:
//
//   - login: sign in or create an account
//   - onboarding: the four-step budgeting survey
//   - dashboard: balances, meal plan and budget categories
//
// Which screen is shown is decided by the route gate from the session
// state; commands only call controller, wizard and writer operations. A
// background watcher pings the server and shows online/offline in the
// prompt.
package cli
