// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [SessionRepository] : Authenticated session records with delegated Spotify tokens.
//     Sessions expire after their configured lifetime and expired rows are
//     dropped on read, so a stored session is always either fully usable or absent.
//   - [EmbedRepository] : Public widget registrations with soft revocation.
//     [EmbedRepository.Authorize] is the server-side check pairing an opaque
//     embed id with its owning user before any upstream request is issued.
//
// Both repositories return [ErrNotFound] for absent, expired, or revoked
// records so callers can branch with errors.Is without string matching.
package repositories
