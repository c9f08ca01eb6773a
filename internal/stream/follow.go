package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/muurk/defmt-print/internal/logging"
	"go.uber.org/zap"
)

// followSource reads a file and then keeps reading as it grows, like
// tail -f. It ends when the file is removed or renamed, or when the context
// is cancelled.
type followSource struct {
	ctx  context.Context
	file *os.File
	fsw  *fsnotify.Watcher
	path string
}

// Follow opens path in follow mode.
func Follow(ctx context.Context, path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = f.Close()
		_ = fsw.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", abs, err)
	}
	return &followSource{ctx: ctx, file: f, fsw: fsw, path: path}, nil
}

func (s *followSource) Name() string { return s.path }

func (s *followSource) Read(p []byte) (int, error) {
	for {
		n, err := s.file.Read(p)
		if n > 0 || (err != nil && err != io.EOF) {
			return n, err
		}
		if err := s.wait(); err != nil {
			return 0, err
		}
	}
}

// wait blocks until the file may have grown.
func (s *followSource) wait() error {
	for {
		select {
		case <-s.ctx.Done():
			return io.EOF
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return io.EOF
			}
			switch {
			case ev.Op&fsnotify.Write != 0:
				return nil
			case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
				logging.Info("Followed file went away", zap.String("path", s.path))
				return io.EOF
			}
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return io.EOF
			}
			logging.Warn("File watcher error", zap.String("path", s.path), zap.Error(err))
		}
	}
}

func (s *followSource) Close() error {
	werr := s.fsw.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return werr
}
