package viz

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/opal-lang/nodeio/core/invariant"
)

// Watch calls onChange each time path is written, created or renamed into
// place, until ctx is cancelled or onChange returns an error. The parent
// directory is watched so that editors that replace the file are seen.
// Watch returns nil on cancellation.
func Watch(ctx context.Context, path string, onChange func() error) error {
	invariant.NotNil(ctx, "ctx")
	invariant.NotNil(onChange, "onChange")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	const trigger = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&trigger == 0 {
				continue
			}
			if err := onChange(); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
