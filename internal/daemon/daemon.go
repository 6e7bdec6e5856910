// Package daemon provides the sync daemon that keeps a Google Sheets
// spreadsheet current with the canvas file.
//
// The daemon:
// 1. Performs an initial sync on startup
// 2. Watches the canvas file for changes (fsnotify or stat polling)
// 3. Debounces rapid writes into a single sync
// 4. Resyncs periodically to catch missed events
// 5. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"sheetsync/internal/canvas"
	"sheetsync/internal/engine"
)

// syncTimeout bounds a single sync pass so a hung remote call cannot
// stall the daemon loops.
const syncTimeout = 60 * time.Second

// Config holds configuration for the daemon.
type Config struct {
	// CanvasPath is the canvas file to watch.
	CanvasPath string

	// DebounceInterval is how long to wait after the last file event
	// before syncing. This batches rapid editor writes together.
	DebounceInterval time.Duration

	// ResyncInterval is how often to sync regardless of file events.
	// A periodic pass repairs drift from missed events or manual
	// spreadsheet edits.
	ResyncInterval time.Duration

	// UsePolling selects stat-based polling instead of fsnotify.
	// Polling works on filesystems that do not deliver change
	// notifications, such as network mounts.
	UsePolling bool

	// PollInterval is how often to stat the file when polling.
	PollInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 2 * time.Second,
		ResyncInterval:   5 * time.Minute,
		PollInterval:     2 * time.Second,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Runner executes one sync pass for a snapshot. *engine.Engine
// satisfies this.
type Runner interface {
	Sync(ctx context.Context, snap *canvas.Snapshot) engine.SyncResult
}

// Daemon orchestrates file watching and spreadsheet synchronization.
type Daemon struct {
	runner Runner
	source engine.SnapshotSource
	config *Config

	watcher *CanvasWatcher // nil when polling

	pending   bool
	pendingAt time.Time
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The runner performs the actual sync (normally *engine.Engine) and
// the source reads the canvas file. Use Start() to begin watching.
func New(runner Runner, source engine.SnapshotSource, config *Config) (*Daemon, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.CanvasPath == "" {
		return nil, fmt.Errorf("canvas path cannot be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 2 * time.Second
	}
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = 5 * time.Minute
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	var watcher *CanvasWatcher
	if !config.UsePolling {
		w, err := NewCanvasWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		watcher = w
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		runner:  runner,
		source:  source,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Perform an initial sync
// 2. Start watching the canvas file
// 3. Process file changes with debouncing
// 4. Resync on the configured interval
//
// This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Printf("Starting daemon, watching %s", d.config.CanvasPath)

	// The first sync may legitimately fail (not connected yet, sheet
	// quota); the daemon keeps running so a later pass can succeed.
	d.syncNow("startup")

	if d.watcher != nil {
		if err := d.watcher.Start(d.config.CanvasPath); err != nil {
			return fmt.Errorf("failed to watch canvas file: %w", err)
		}
		d.wg.Add(1)
		go d.watchFileEvents()
	} else {
		d.wg.Add(1)
		go d.pollFileChanges()
	}

	d.wg.Add(2)
	go d.processChangeQueue()
	go d.periodicResync()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	// Signal shutdown
	d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.config.Logger.Printf("Error stopping watcher: %v", err)
		}
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// TriggerSync queues a sync as if the canvas file had changed. It is
// used for manual triggers, such as the dashboard's sync button.
func (d *Daemon) TriggerSync() {
	d.queueChange()
}

// watchFileEvents monitors watcher events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}

			// A delete queues a sync too: the empty snapshot clears
			// the spreadsheet down to its header row.
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)
			d.queueChange()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// pollFileChanges runs the stat-based poller until shutdown.
func (d *Daemon) pollFileChanges() {
	defer d.wg.Done()

	err := WatchFilePoll(d.ctx, PollConfig{
		Path:         d.config.CanvasPath,
		PollInterval: d.config.PollInterval,
		Logger:       d.config.Logger,
	}, func(event Event) error {
		d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)
		d.queueChange()
		return nil
	})
	if err != nil && d.ctx.Err() == nil {
		d.config.Logger.Printf("Poller stopped: %v", err)
	}
}

// queueChange marks the canvas as dirty and restarts the debounce
// window.
func (d *Daemon) queueChange() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	d.pending = true
	d.pendingAt = time.Now()
}

// processChangeQueue syncs once the pending change is old enough.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.pendingMu.Lock()
			// Only process if enough time has passed (debouncing)
			ready := d.pending && time.Since(d.pendingAt) >= d.config.DebounceInterval
			if ready {
				d.pending = false
			}
			d.pendingMu.Unlock()

			if ready {
				d.syncNow("change")
			}
		}
	}
}

// periodicResync syncs on a fixed interval regardless of file events.
func (d *Daemon) periodicResync() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.syncNow("periodic")
		}
	}
}

// syncNow reads the canvas and runs one sync pass.
func (d *Daemon) syncNow(reason string) {
	ctx, cancel := context.WithTimeout(d.ctx, syncTimeout)
	defer cancel()

	snap, err := d.source.Current(ctx)
	if err != nil {
		d.config.Logger.Printf("Failed to read canvas (%s): %v", reason, err)
		return
	}

	result := d.runner.Sync(ctx, snap)
	switch result.Status {
	case engine.StatusOK:
		d.config.Logger.Printf("Synced %d rows in %s (%s)", result.RowCount, result.Duration.Round(time.Millisecond), reason)
	case engine.StatusSkipped:
		d.config.Logger.Printf("No changes (%s)", reason)
	case engine.StatusNeedsAuth:
		if result.AuthURL != "" {
			d.config.Logger.Printf("Authorization required (%s); open %s to connect", reason, result.AuthURL)
		} else {
			d.config.Logger.Printf("Authorization required (%s); no authorization URL available", reason)
		}
	default:
		d.config.Logger.Printf("Sync failed (%s): %v", reason, result.Err)
	}
}
