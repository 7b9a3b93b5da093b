// Package client contains the client-side transport for BoilerBudget.
//
// # Overview
//
// The package provides:
//  1. The Client contract: account calls (Register, Login, WhoAmI), the
//     Profile Store (Get, MergeSet), avatar upload URLs and Ping.
//  2. GRPCClient, which keeps the session tokens, injects the access token
//     via an interceptor, rotates an expired token once per call and maps
//     gRPC status codes to sentinel errors.
//  3. InitDatabase and RunMigrations, which open the local SQLite file and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Callers match ErrUnavailable, ErrUnauthorized, ErrNotFound and
// ErrLocalDataNotAvailable with errors.Is. ErrUnauthorized and ErrNotFound
// also match common.ErrorUnauthorized and common.ErrorNotFound.
package client
