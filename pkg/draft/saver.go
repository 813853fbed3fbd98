package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last mutation before the
// draft is written. Rapid edits coalesce into a single write.
const DefaultDebounce = 2 * time.Second

// ErrWriteFailed marks a storage write rejected by the backend.
var ErrWriteFailed = errors.New("draft: storage write failed")

// Logger receives swallowed storage failures. The stdlib *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// SaverOption customises the saver.
type SaverOption func(*Saver)

// WithKey overrides the storage key for the draft slot.
func WithKey(key string) SaverOption {
	return func(s *Saver) {
		if key != "" {
			s.key = key
		}
	}
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) SaverOption {
	return func(s *Saver) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger routes swallowed storage failures somewhere visible.
func WithLogger(logger Logger) SaverOption {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Saver debounces draft writes into a Store. It also carries the restoring
// flag that prevents an autosave from overwriting a freshly restored record
// with stale in-memory state while the editor is still re-hydrating.
type Saver struct {
	store    Store
	key      string
	debounce time.Duration
	logger   Logger

	mu        sync.Mutex
	timer     *time.Timer
	pending   *Record
	restoring bool
	closed    bool
}

// NewSaver wires a debounced draft writer over the given store.
func NewSaver(store Store, options ...SaverOption) *Saver {
	s := &Saver{
		store:    store,
		key:      DefaultKey,
		debounce: DefaultDebounce,
		logger:   nopLogger{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Save schedules rec for persistence after the debounce interval. Calls made
// before the interval elapses replace the pending record and restart the
// timer. No-op while a restore is in progress or after Close.
func (s *Saver) Save(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restoring || s.closed {
		return
	}

	rec.SavedAt = time.Now()
	s.pending = &rec

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flushPending)
}

// Flush writes any pending record immediately, bypassing the timer. This is
// the best-effort path for shutdown hooks; data since the last successful
// flush may still be lost.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.flushPending()
}

// Load reads the stored record, if any. Callers must bracket the restore
// with BeginRestore/EndRestore so concurrent autosaves cannot clobber it.
func (s *Saver) Load() (Record, bool, error) {
	raw, ok, err := s.store.GetItem(s.key)
	if err != nil {
		return Record{}, false, fmt.Errorf("draft: load: %w", err)
	}
	if !ok {
		return Record{}, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("draft: load: %w", err)
	}
	return rec, true, nil
}

// Clear removes the stored record and drops any pending write.
func (s *Saver) Clear() error {
	s.mu.Lock()
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if err := s.store.RemoveItem(s.key); err != nil {
		return fmt.Errorf("draft: clear: %w", err)
	}
	return nil
}

// BeginRestore raises the restoring flag; Save calls are ignored until
// EndRestore. The window covers the asynchronous re-hydration of the editor,
// not just the storage read.
func (s *Saver) BeginRestore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = true
}

// EndRestore lowers the restoring flag.
func (s *Saver) EndRestore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring = false
}

// Restoring reports whether a restore is in progress.
func (s *Saver) Restoring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoring
}

// Close flushes any pending write and stops the saver for good.
func (s *Saver) Close() {
	s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Saver) flushPending() {
	s.mu.Lock()
	rec := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if rec == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Printf("draft: marshal failed: %v", err)
		return
	}
	if err := s.store.SetItem(s.key, string(data)); err != nil {
		s.logger.Printf("draft: write failed: %v", err)
	}
}
