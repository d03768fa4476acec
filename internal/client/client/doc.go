// Package client is the remote side of the permit client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) consumed by
//     the sync engine and the repository facade.
//  2. A REST/JSON implementation (see RESTClient) that attaches the bearer
//     token, tolerates the optional {success,data,message,error} envelope,
//     retries idempotent reads on transient failures and maps HTTP outcomes
//     to sentinel errors.
//  3. Client-side inspection of the session token (see InspectToken).
//
// # Error Handling
//
// Every call returns either a value or an error; nothing panics. Callers match
// errors with errors.Is:
//
//   - ErrUnavailable: transport failure, timeout or 5xx. Safe to retry later.
//   - ErrUnauthorized: 401/403, the session is gone.
//   - ErrRejected: any other 4xx; the concrete *RejectedError carries the
//     status and the server's message. Never retried.
//   - ErrNotLoggedIn: an authenticated call was made without a token.
//
// IsTransient separates the first class from the rest.
package client
