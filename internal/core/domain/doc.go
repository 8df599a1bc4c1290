// Package domain contains the core business types for knowbase.
// These types have no dependencies on infrastructure and are shared
// between the query pipeline, the sync engine and the batch jobs.
package domain
