// Package repositories implements SQLite persistence for the signed-in session.
//
// Key Implementations:
//   - [SessionRepository] : the transfer API token plus the provider accounts linked to it
//
// Connections are soft deleted via deleted_at timestamps and excluded from queries by default.
// A later connect for the same provider revives the row.
package repositories
