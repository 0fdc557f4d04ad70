// Package upload ships failure artifacts to remote object storage.
package upload

import (
	"context"
	"io"
)

// Provider defines the interface for artifact upload providers
type Provider interface {
	// Upload stores size bytes from reader under remotePath
	Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error

	// Configure sets up the provider from the [upload.options] table
	Configure(config map[string]any) error

	// Check verifies the remote side is reachable and ready
	Check(ctx context.Context) error

	// Name returns the provider name
	Name() string
}
