// Package filewatch cancels contexts on changes of files.
package filewatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext returns a context that is canceled when one of paths is
// written, created, removed or renamed. context.Cause tells which one.
//
// A file is watched through its directory, so replacing it by rename
// (editors, mounted config maps) is noticed too. A directory is watched as a whole.
// Empty paths are ignored, and missing paths are errors.
//
// On error, both of the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, paths ...string) (context.Context, func(), error) {
	// watched directory -> names of interest in it. nil means any.
	targets := map[string]map[string]bool{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, err
		}
		stat, err := os.Stat(abs)
		if err != nil {
			return nil, nil, err
		}
		if stat.IsDir() {
			targets[abs] = nil
			continue
		}
		dir := filepath.Dir(abs)
		names, seen := targets[dir]
		if seen && names == nil {
			continue
		}
		if names == nil {
			names = map[string]bool{}
			targets[dir] = names
		}
		names[filepath.Base(abs)] = true
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for dir := range targets {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				names := targets[filepath.Dir(event.Name)]
				if names != nil && !names[filepath.Base(event.Name)] {
					continue
				}
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(fmt.Errorf("watching files: %w", err))
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
