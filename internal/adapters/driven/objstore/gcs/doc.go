// Package gcs backs up the persisted vector index files to a Google Cloud
// Storage bucket.
package gcs
