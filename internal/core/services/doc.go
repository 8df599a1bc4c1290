// Package services contains the core business logic: the chat pipeline
// stages, retrieval, synchronisation and index maintenance. Services
// depend only on the driven ports; concrete adapters are wired in at the
// CLI layer.
package services
