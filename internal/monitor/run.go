package monitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Run drives the headless monitor loop until ctx is cancelled. A ticker
// paces the polls; an fsnotify watcher on the analyze directory wakes the
// loop early when the log grows, so messages arrive promptly without a
// tight poll interval. On shutdown any active session is flushed.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	watched := ""
	if p := m.tailer.Path(); p != "" {
		watched = filepath.Base(p)
	}
	m.send(ctx, m.live.FormatStartup(watched))

	var wake <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(m.cfg.AnalyzeDir); err != nil {
			m.cfg.Logger.Printf("monitor: watch %s: %v", m.cfg.AnalyzeDir, err)
		} else {
			wake = watcher.Events
			watchErrs = watcher.Errors
		}
	} else {
		// Polling alone still works without inotify.
		m.cfg.Logger.Printf("monitor: fsnotify unavailable: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			// The run context is already cancelled; the final messages get
			// their own short deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			m.Flush(flushCtx)
			m.send(flushCtx, m.live.FormatShutdown())
			cancel()
			return ctx.Err()

		case <-ticker.C:
			if err := m.Poll(ctx, time.Now()); err != nil {
				m.cfg.Logger.Printf("monitor: %v", err)
			}

		case ev, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if err := m.Poll(ctx, time.Now()); err != nil {
					m.cfg.Logger.Printf("monitor: %v", err)
				}
			}

		case _, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
			}
			// Watcher errors are non-fatal; the ticker keeps polling.
		}
	}
}
