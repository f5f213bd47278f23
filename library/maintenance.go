package library

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const DefaultInterval = 30 * time.Minute

// SpawnReconciliation runs lib.Reconcile every interval, and early whenever
// lib.Trigger is called. Passes never overlap: a slow pass delays the next one.
// Closing the returned stop channel ends the loop; done is closed once it has exited.
func SpawnReconciliation(lib *Library, interval time.Duration) (stop chan struct{}, done <-chan struct{}) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	stopChan := make(chan struct{})
	doneChan := make(chan struct{})
	lib.log.Info("starting library reconciliation", "interval", interval)

	go func() {
		defer close(doneChan)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				lib.Reconcile()
			case <-lib.trigger:
				lib.log.Info("early reconciliation requested")
				lib.Reconcile()
			case <-stopChan:
				lib.log.Info("stopping library reconciliation")
				return
			}
		}
	}()

	return stopChan, doneChan
}

// WatchRemovals triggers an early pass as soon as a removal request lands in the
// removal directory. The returned function stops watching.
func (lib *Library) WatchRemovals() (func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create removal watcher")
	}
	if err := w.Add(lib.paths.Removals); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "cannot watch removal directory")
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) || isHidden(filepath.Base(ev.Name)) {
					continue
				}
				lib.log.Info("removal request received", "name", filepath.Base(ev.Name))
				lib.Trigger()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lib.log.Warn("removal watcher error", "err", err)
			}
		}
	}()

	return w.Close, nil
}
