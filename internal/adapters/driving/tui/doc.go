// Package tui implements the interactive chat terminal interface on top of
// Bubbletea.
package tui
