// Package file loads and persists knowbase settings from a TOML file.
package file
