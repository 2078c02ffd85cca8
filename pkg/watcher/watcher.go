// Package watcher reports edits to the project file and the adapter file so
// generated source can be refreshed while the user works.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/scenegraph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeAdapter ChangeType = iota
	ChangeTypeProject
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeAdapter:
		return "adapter"
	case ChangeTypeProject:
		return "project"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups the several raw events an editor save produces
const batchWindow = 100 * time.Millisecond

// FileWatcher watches a project file and an optional adapter file
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for project and, when non-empty,
// adapter. The files need not exist yet but their directories must.
func NewFileWatcher(project, adapter string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]ChangeType),
		events:  make(chan ChangeEvent, 100),
	}
	if err := fw.track(project, ChangeTypeProject); err != nil {
		watcher.Close()
		return nil, err
	}
	if adapter != "" {
		if err := fw.track(adapter, ChangeTypeAdapter); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return fw, nil
}

// track registers path. Editors often replace files by rename, so the
// directory is watched rather than the file.
func (fw *FileWatcher) track(path string, t ChangeType) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	fw.files[abs] = t
	dir := filepath.Dir(abs)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Debug("watching file", "path", abs, "type", t)
	return nil
}

// Start begins watching for file changes. The events channel is closed
// when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) {
	logging.Info("started watching", "files", len(fw.files))
	go fw.processEvents(ctx)
}

// classify maps a raw event to the tracked file it touches
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return 0, false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return 0, false
	}
	t, ok := fw.files[abs]
	return t, ok
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeAdapter, ChangeTypeProject} {
			if len(pending[t]) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: pending[t], Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
			delete(pending, t)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			t, ok := fw.classify(event)
			if !ok {
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			pending[t] = append(pending[t], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
