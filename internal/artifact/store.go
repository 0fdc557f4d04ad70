// Package artifact persists the inputs of failing trials.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/zinc-sig/tandem/internal/testcase"
	"github.com/zinc-sig/tandem/internal/upload"
)

// Failure categories, used as the artifact file name prefix.
const (
	CategoryMismatch = "mismatch"
	CategoryTimeout  = "timeout"
	CategoryLeakA    = "leak_a"
	CategoryLeakB    = "leak_b"
)

// Artifact describes one persisted failing test case.
type Artifact struct {
	Category string `json:"category"`
	Sequence int    `json:"sequence"`
	Path     string `json:"path"`
	Remote   string `json:"remote,omitempty"`
}

type Config struct {
	Dir          string
	IncludeLabel bool // prefix the input with the test case label

	// Upload is optional. Remote objects are named <RunID>/<file>, with a
	// .zst suffix when Compress is set.
	Upload   upload.Provider
	RunID    string
	Compress bool
}

// Store writes one file per failing trial. Sequence numbers are shared by
// all categories and strictly increase for the lifetime of the store.
type Store struct {
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	seq      int
	dirReady bool
	saved    []Artifact
	encoder  *zstd.Encoder
}

func NewStore(config Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{config: config, logger: logger}
	if config.Upload != nil && config.Compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		s.encoder = enc
	}
	return s, nil
}

// Save writes tc under the next sequence number. The local write is the
// only failure that is returned; upload problems are logged.
func (s *Store) Save(ctx context.Context, category string, tc testcase.TestCase) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirReady {
		if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
			return Artifact{}, fmt.Errorf("failed to create failures directory %s: %w", s.config.Dir, err)
		}
		s.dirReady = true
	}

	s.seq++
	name := fmt.Sprintf("%s_%04d.txt", category, s.seq)
	artifact := Artifact{
		Category: category,
		Sequence: s.seq,
		Path:     filepath.Join(s.config.Dir, name),
	}

	content := s.content(tc)
	if err := os.WriteFile(artifact.Path, content, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write artifact %s: %w", artifact.Path, err)
	}
	s.logger.Debug("artifact saved", "path", artifact.Path, "bytes", len(content))

	if s.config.Upload != nil {
		remote, err := s.upload(ctx, name, content)
		if err != nil {
			s.logger.Warn("artifact upload failed", "path", artifact.Path, "provider", s.config.Upload.Name(), "error", err)
		} else {
			artifact.Remote = remote
		}
	}

	s.saved = append(s.saved, artifact)
	return artifact, nil
}

func (s *Store) content(tc testcase.TestCase) []byte {
	if !s.config.IncludeLabel {
		return []byte(tc.Input)
	}
	return []byte(tc.Label + "\n" + tc.Input)
}

func (s *Store) upload(ctx context.Context, name string, content []byte) (string, error) {
	remote := path.Join(s.config.RunID, name)
	if s.encoder != nil {
		content = s.encoder.EncodeAll(content, make([]byte, 0, len(content)))
		remote += ".zst"
	}
	if err := s.config.Upload.Upload(ctx, bytes.NewReader(content), int64(len(content)), remote); err != nil {
		return "", err
	}
	s.logger.Debug("artifact uploaded", "remote", remote, "provider", s.config.Upload.Name())
	return remote, nil
}

// Artifacts returns every artifact saved so far, in sequence order.
func (s *Store) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Artifact(nil), s.saved...)
}

func (s *Store) Close() error {
	if s.encoder != nil {
		return s.encoder.Close()
	}
	return nil
}
