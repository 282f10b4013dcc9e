// Package poolwatch gives operators a live view of lock-directory
// activity. It is diagnostic only: nothing in the leasing core
// subscribes to it. It reports raw filesystem events and never reads
// lockfile contents or judges whether a lease is live, so a missed
// event cannot make a stale lease appear live.
package poolwatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Event is one observed change to an entry in the watched lock
// directory.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watch subscribes to dir and invokes onEvent for every event (create,
// write, remove, rename, chmod) observed on an entry inside it, until
// ctx is canceled or the watcher's channels close. Watcher errors are
// passed to onError and do not stop the watch. It does not watch subdirectories;
// the pool lock directory is flat by construction, with one lock file
// per account login name.
func Watch(ctx context.Context, dir string, onEvent func(Event), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("poolwatch: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("poolwatch: watching %s: %w", dir, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if onEvent != nil {
				onEvent(Event{Path: ev.Name, Op: ev.Op})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
