// Package sqlite provides SQLite-backed implementations of the storage
// ports, sharing one database file between documents, chunks and sync
// history.
package sqlite
