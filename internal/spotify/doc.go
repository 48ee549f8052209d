// Package spotify implements the upstream Web API client and the error
// classification layer shared by every consumer of it.
//
// # Client
//
// [Client] issues read-only requests against the Spotify Web API using a
// delegated bearer token resolved through a [TokenProvider] on every call.
// The token is never cached inside the client; the provider is the single
// source of truth for "is there a usable token right now".
//
// A 204 response, or a 2xx response with an unparseable body, is reported
// as "no content" (nil result, nil error) rather than a failure. Some
// endpoints legitimately return empty bodies on success.
//
// # Classification
//
// [Classify] maps an upstream status code and response body to exactly one
// [Kind]. Spotify error bodies are free text, so 401 and 403 handling is a
// best-effort substring heuristic; the [Kind] enum is the stable contract
// and the heuristics behind it can change without touching any consumer.
//
// Every failure leaving this package is a [*Error]. Anything unexpected
// (network failure, malformed non-2xx body) is wrapped as [KindUnknown] or
// [KindParseError]; raw errors never cross the package boundary.
package spotify
