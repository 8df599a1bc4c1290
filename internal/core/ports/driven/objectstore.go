package driven

import "context"

// ObjectStorage uploads and downloads the persisted index files for
// durability outside local disk. Optional: batch jobs work without one.
type ObjectStorage interface {
	// Upload copies a local file to the given remote object name.
	Upload(ctx context.Context, localPath, objectName string) error

	// Download copies a remote object to the given local path.
	Download(ctx context.Context, objectName, localPath string) error
}
