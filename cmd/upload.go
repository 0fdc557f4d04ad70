package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zinc-sig/tandem/internal/config"
	"github.com/zinc-sig/tandem/internal/upload"
)

// uploadCheckTimeout bounds the reachability check made before the run.
const uploadCheckTimeout = 10 * time.Second

// buildUploadProvider returns nil when no provider is configured. A provider
// that cannot reach its bucket fails the run before any trial starts.
func buildUploadProvider(ctx context.Context, cfg config.UploadConfig) (upload.Provider, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	provider, err := upload.NewProvider(cfg.Provider, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload provider: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, uploadCheckTimeout)
	defer cancel()
	if err := provider.Check(checkCtx); err != nil {
		return nil, fmt.Errorf("upload provider %s is not ready: %w", provider.Name(), err)
	}
	return provider, nil
}
