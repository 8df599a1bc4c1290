// Package driving provides interfaces for callers of the core services
// (primary/inbound ports): the CLI commands and the chat TUI.
package driving
