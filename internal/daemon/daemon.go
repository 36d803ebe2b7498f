// Package daemon provides the background process that watches an inbox
// directory for dropped-in record files and keeps the sync schedule
// running.
//
// The daemon:
// 1. Sweeps the inbox on startup and imports any pending files
// 2. Watches the inbox for new .json files and imports them debounced
// 3. Starts the orchestrator's periodic sync schedule
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/steveyegge/syncpad/internal/store"
	"github.com/steveyegge/syncpad/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often the orchestrator runs a sync cycle.
	// Zero disables the schedule; the daemon then only imports inbox files.
	SyncInterval time.Duration

	// DebounceInterval is how long to wait before importing a changed
	// inbox file. This batches rapid writes (editors, partial copies)
	// into one import.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     5 * time.Minute,
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// NewFileLogger returns a logger writing to a size-rotated file. Used
// when the daemon runs detached from a terminal.
func NewFileLogger(path string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, "[daemon] ", log.LstdFlags)
}

// Daemon watches the inbox directory and drives the sync schedule.
type Daemon struct {
	db       *store.DB
	orch     *sync.Orchestrator
	inboxDir string
	config   *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> queue time
	changeQueueMu stdsync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// New creates a new Daemon instance with default configuration.
// Use Start() to begin watching and syncing.
func New(db *store.DB, orch *sync.Orchestrator, inboxDir string) (*Daemon, error) {
	return NewWithConfig(db, orch, inboxDir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(db *store.DB, orch *sync.Orchestrator, inboxDir string, config *Config) (*Daemon, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if inboxDir == "" {
		return nil, fmt.Errorf("inboxDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}

	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		db:          db,
		orch:        orch,
		inboxDir:    inboxDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Import every file already sitting in the inbox
// 2. Start watching the inbox for new files
// 3. Start the orchestrator's sync schedule
//
// This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.SweepInbox(ctx); err != nil {
		return fmt.Errorf("initial inbox sweep failed: %w", err)
	}

	if err := d.watcher.Add(d.inboxDir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.inboxDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	if d.config.SyncInterval > 0 {
		d.orch.StartAutoSync(d.config.SyncInterval)
	}

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

	d.orch.StopAutoSync()
	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// SweepInbox imports every pending .json file currently in the inbox.
// It's called on startup and can be triggered manually.
func (d *Daemon) SweepInbox(ctx context.Context) error {
	entries, err := os.ReadDir(d.inboxDir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(d.inboxDir, entry.Name())
		if err := d.importFile(ctx, path); err != nil {
			d.config.Logger.Printf("Warning: failed to import %s: %v", path, err)
			continue
		}
		count++
	}

	if count > 0 {
		d.config.Logger.Printf("Imported %d inbox files", count)
	}
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create and Write
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// Only process .json files
			if filepath.Ext(event.Name) != ".json" {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue imports queued files once they have settled.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges imports files that have been quiet long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		delete(d.changeQueue, path)

		if err := d.importFile(d.ctx, path); err != nil {
			d.config.Logger.Printf("Error importing %s: %v", path, err)
		}
	}
}

// importFile reads one inbox file, stores the record it describes, and
// removes the file. Malformed files are renamed with a .rejected suffix
// so they are not retried on every tick.
func (d *Daemon) importFile(ctx context.Context, path string) error {
	// The file may already be gone (imported by the startup sweep, or
	// removed by the user).
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	rec, err := ReadInboxFile(path)
	if err != nil {
		d.reject(path)
		return err
	}

	switch rec.Kind {
	case KindTask:
		id, err := d.db.Tasks().Create(ctx, rec.Task())
		if err != nil {
			d.reject(path)
			return fmt.Errorf("failed to store task: %w", err)
		}
		d.config.Logger.Printf("Imported task %d: %s", id, rec.Title)

	case KindNote:
		id, err := d.db.Notes().Create(ctx, rec.Note())
		if err != nil {
			d.reject(path)
			return fmt.Errorf("failed to store note: %w", err)
		}
		d.config.Logger.Printf("Imported note %d: %s", id, rec.Title)

	default:
		d.reject(path)
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove imported file: %w", err)
	}
	return nil
}

// reject moves a bad file aside so the import loop stops picking it up.
func (d *Daemon) reject(path string) {
	if err := os.Rename(path, path+".rejected"); err != nil {
		d.config.Logger.Printf("Error setting aside %s: %v", path, err)
	}
}
