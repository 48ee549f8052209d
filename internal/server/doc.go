// Package server provides HTTP routing, middleware, response envelopes and
// OAuth handling for the listening stats service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Response Envelope
//
// Every API response is an [Envelope]: a status code, a success/error marker,
// a human-readable message, and either a data block or an error block. The
// envelope's embedded status code always equals the HTTP status it is written
// with. [FromUpstream] is the single mapping from the upstream error taxonomy
// to HTTP statuses and error codes; handlers never pick status codes ad hoc.
//
// # Session Invalidation
//
// The [Invalidator] is the server-side sign-out path: it deletes the persisted
// session, expires every cookie matching the auth cookie prefixes and
// redirects to the logged-out landing page with a timestamped reason. The
// operation is idempotent, so racing requests and repeated sign-outs are safe.
//
// # Auth Flows
//
// [AuthHandler] implements the browser flow: login redirect with CSRF state,
// callback exchange, session persistence and the landing page. [OAuthHandler]
// implements the local callback used by the CLI login command, where a
// temporary server on localhost receives the redirect and hands the token
// back through a channel. It only processes one callback to prevent replay.
//
// # Public Embeds
//
// [EmbedHandler] serves the unauthenticated widget endpoints. Requests carry
// an embed id and user id pair that is authorized against the embed registry
// before anything is fetched upstream. Widgets render self-contained HTML,
// including on failure, and are wrapped with [EmbedHeaders] and [RateLimit]
// since they are publicly cacheable and carry no session.
package server
