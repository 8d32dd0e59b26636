// Package hotreload re-runs a QRT program whenever its source file
// changes on disk, for the `qrt run --watch` development loop.
package hotreload

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay absorbs the burst of Write events a single save can
// produce (several editors write-then-rename, or write in two passes).
const debounceDelay = 150 * time.Millisecond

// Watch blocks, invoking onChange once per debounced burst of writes to
// path, until the watcher is closed or an unrecoverable error occurs.
// Errors encountered along the way are reported through onError rather
// than returned, since a single bad event shouldn't stop watching.
func Watch(path string, onChange func(), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("hotreload: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("hotreload: watch %s: %w", path, err)
	}

	timer := time.NewTimer(debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				timer.Reset(debounceDelay)
			}
		case <-timer.C:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(fmt.Errorf("hotreload: watcher error: %w", err))
			}
		}
	}
}
