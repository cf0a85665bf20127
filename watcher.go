// watcher.go: Polling reload of a settings file
//
// Example Usage:
//   watcher := eidos.NewSettingsWatcher(sm, eidos.WatchConfig{
//       PollInterval: 2 * time.Second,
//       OnChange: func(event eidos.ChangeEvent, err error) {
//           if err == nil {
//               server.SetPort(eidos.Lookup(sm, props.Port))
//           }
//       },
//   })
//   watcher.Start()
//   defer watcher.Stop()
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package eidos

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// ChangeEvent describes a change of the settings file seen by a poll.
type ChangeEvent struct {
	Path     string
	ModTime  time.Time
	Size     int64
	IsCreate bool
	IsDelete bool
	IsModify bool
}

// WatchConfig configures a SettingsWatcher.
type WatchConfig struct {
	// PollInterval is how often the file is checked. Default: 5 seconds.
	PollInterval time.Duration

	// CacheTTL is how long a stat result is reused.
	// Default: PollInterval / 2, never more than PollInterval.
	CacheTTL time.Duration

	// OnChange is called after every change, with the reload error if any.
	// A deleted file is reported but not reloaded.
	OnChange func(event ChangeEvent, err error)
}

// WithDefaults returns a copy of the configuration with defaults applied.
func (c WatchConfig) WithDefaults() WatchConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.CacheTTL <= 0 || c.CacheTTL > c.PollInterval {
		c.CacheTTL = c.PollInterval / 2
	}
	return c
}

// fileStat is a cached os.Stat result.
type fileStat struct {
	modTime  time.Time
	size     int64
	exists   bool
	cachedAt int64
}

func (fs fileStat) isExpired(ttl time.Duration) bool {
	return timecache.CachedTimeNano()-fs.cachedAt > int64(ttl)
}

// SettingsWatcher reloads a SettingsManager when its file changes on disk.
// Polling keeps it portable; a stat cache bounds the syscall rate.
type SettingsWatcher struct {
	sm     *SettingsManager
	config WatchConfig

	mu       sync.Mutex
	lastStat fileStat
	cached   fileStat
	reloads  atomic.Int64

	running   atomic.Bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSettingsWatcher creates a stopped watcher for sm. The current state of
// the file is the baseline: only later changes trigger a reload.
func NewSettingsWatcher(sm *SettingsManager, config WatchConfig) *SettingsWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &SettingsWatcher{
		sm:        sm,
		config:    config.WithDefaults(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.lastStat, _ = w.getStat()
	return w
}

// Start begins polling in the background.
func (w *SettingsWatcher) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New(ErrCodeWatcherBusy, "watcher is already running")
	}
	go w.watchLoop()
	return nil
}

// Stop ends polling and waits for the loop to exit. A stopped watcher cannot
// be restarted.
func (w *SettingsWatcher) Stop() error {
	if !w.running.CompareAndSwap(true, false) {
		return errors.New(ErrCodeWatcherStopped, "watcher is not running")
	}
	w.cancel()
	close(w.stopCh)
	<-w.stoppedCh
	return nil
}

// Close is an alias for Stop.
func (w *SettingsWatcher) Close() error {
	return w.Stop()
}

// IsRunning reports whether the polling loop is active.
func (w *SettingsWatcher) IsRunning() bool {
	return w.running.Load()
}

// Reloads returns the number of reloads performed, failed ones included.
func (w *SettingsWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// ClearCache forces the next poll to stat the file.
func (w *SettingsWatcher) ClearCache() {
	w.mu.Lock()
	w.cached = fileStat{}
	w.mu.Unlock()
}

func (w *SettingsWatcher) watchLoop() {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// getStat returns the cached stat or refreshes it when expired.
func (w *SettingsWatcher) getStat() (fileStat, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cached.cachedAt != 0 && !w.cached.isExpired(w.config.CacheTTL) {
		return w.cached, nil
	}

	info, err := os.Stat(w.sm.File())
	stat := fileStat{cachedAt: timecache.CachedTimeNano(), exists: err == nil}
	if err == nil {
		stat.modTime = info.ModTime()
		stat.size = info.Size()
	}
	w.cached = stat
	return stat, err
}

// poll compares the file with the last seen state and reloads on change.
// It reports whether a change was detected.
func (w *SettingsWatcher) poll() bool {
	current, err := w.getStat()
	if err != nil && !os.IsNotExist(err) {
		w.sm.onError(errors.Wrap(err, ErrCodeIOError, "failed to stat settings file").
			WithContext("file", w.sm.File()), w.sm.File())
		return false
	}

	previous := w.lastStat
	event := ChangeEvent{Path: w.sm.File(), ModTime: current.modTime, Size: current.size}
	switch {
	case !current.exists && previous.exists:
		event.IsDelete = true
	case current.exists && !previous.exists:
		event.IsCreate = true
	case current.exists && (!current.modTime.Equal(previous.modTime) || current.size != previous.size):
		event.IsModify = true
	default:
		return false
	}
	w.lastStat = current

	var reloadErr error
	if !event.IsDelete {
		reloadErr = w.sm.Reload()
		w.reloads.Add(1)
		if reloadErr != nil {
			w.sm.onError(reloadErr, w.sm.File())
		}
		// A migration on reload rewrites the file; take that as the new baseline
		w.ClearCache()
		if stat, err := w.getStat(); err == nil {
			w.lastStat = stat
		}
	}

	if w.config.OnChange != nil {
		w.config.OnChange(event, reloadErr)
	}
	return true
}
