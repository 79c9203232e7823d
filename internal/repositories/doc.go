// Package repositories implements SQLite persistence for credentials.
//
// [TokenRepository] stores one OAuth token per music service so the bot can reload a session after
// re-authentication without asking an operator to log in again. Rows carry a UUID and a human-readable
// sequence number allocated by [NextSequence] from a dedicated sequence table.
package repositories
