// internal/blobstore/blobstore.go
package blobstore

import "context"

// FileInfo describes one stored file. BlobID and BlobObjectID are the
// storage network identifiers recorded alongside dataset metadata.
type FileInfo struct {
	ID           string
	Name         string
	Size         int64
	BlobID       string
	BlobObjectID string
	VaultID      string
}

// BlobStore is the remote storage surface the backend depends on: one vault
// holding dataset files, upload by path, download by file id.
type BlobStore interface {
	// EnsureVault resolves the configured vault, creating it when no vault
	// id is configured yet. Returns the vault id in use.
	EnsureVault(ctx context.Context) (string, error)

	// Upload stores the file at path under the given name and returns its
	// metadata.
	Upload(ctx context.Context, path, name string) (*FileInfo, error)

	// Download fetches the raw contents of a stored file.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// FileMeta fetches the metadata of a stored file.
	FileMeta(ctx context.Context, fileID string) (*FileInfo, error)
}
