// Package session owns the lifecycle of the authenticated session and its
// delegated Spotify token.
//
// # Accessor
//
// [Accessor] resolves the current delegated access token from the session
// store, consulting it exactly once per call. It is constructed for one of
// two explicit modes: [ModeAPI] surfaces a typed missing-token failure so
// API routes can answer with a structured 401, while [ModePage] triggers the
// invalidation callback immediately, since a structured error is meaningless
// to a page render. The mode is a constructor parameter, never inferred.
//
// Expired access tokens are refreshed transparently through the OAuth2
// refresh grant when a refresh token is on file, and the rotated tokens are
// persisted back to the store before the call returns.
//
// # Manager
//
// [Manager] is the session state machine: Unauthenticated, Authenticating,
// Authenticated, Invalidating. Transitions are the only place invalidation
// runs, so re-entrant invalidation is impossible by construction rather
// than guarded by a flag.
//
// # Policy
//
// The invalidation policy constants here are the single definition of what
// both backends (browser-style client and server response headers) must
// clear and where the redirect must land. The two implementations live with
// their execution contexts but share this definition.
package session
