package confwatch

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/railgate/railgate-core/internal/infrastructure/logging"
)

// ListenerFunc receives a change notification for one key. present is
// false when the key was removed from the file, in which case value is
// empty and the listener should revert to its default.
type ListenerFunc func(key, value string, present bool)

// Watcher polls a key=value overrides file and fans out changes to
// subscribers.
//
// Thread Safety:
//   - Get, GetBool, Subscribe, and SubscribePrefix are safe for
//     concurrent use.
//   - Listeners run on the watcher goroutine; they must not block.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *logging.Logger

	mu        sync.RWMutex
	values    map[string]string
	listeners []subscription

	// File identity of the last successful parse.
	modTime time.Time
	size    int64

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

type subscription struct {
	key    string
	prefix bool
	fn     ListenerFunc
}

// New creates a watcher for the overrides file at path. The file does
// not have to exist; it is re-checked every interval.
func New(path string, interval time.Duration, logger *logging.Logger) *Watcher {
	return &Watcher{
		path:     path,
		interval: interval,
		logger:   logger.With("component", "confwatch"),
		values:   make(map[string]string),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Load parses the file once without notifying subscribers. Call it
// before Start so values read during wiring reflect the file content.
func (w *Watcher) Load() {
	parsed, modTime, size := w.parse()
	w.mu.Lock()
	w.values = parsed
	w.modTime = modTime
	w.size = size
	w.mu.Unlock()
}

// Start launches the poll loop.
func (w *Watcher) Start() {
	go w.run()
	w.logger.Info("overrides watcher started", "path", w.path, "interval", w.interval)
}

// Stop terminates the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

// Get returns the current value for key.
func (w *Watcher) Get(key string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.values[key]
	return v, ok
}

// GetBool returns the value for key interpreted as a boolean, or def
// when the key is absent or malformed. Accepts the forms strconv does:
// 1/0, t/f, true/false.
func (w *Watcher) GetBool(key string, def bool) bool {
	v, ok := w.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetInt returns the value for key interpreted as an integer, or def
// when the key is absent or malformed.
func (w *Watcher) GetInt(key string, def int) int {
	v, ok := w.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Subscribe registers fn for changes to exactly key.
func (w *Watcher) Subscribe(key string, fn ListenerFunc) {
	w.mu.Lock()
	w.listeners = append(w.listeners, subscription{key: key, fn: fn})
	w.mu.Unlock()
}

// SubscribePrefix registers fn for changes to any key starting with
// prefix. Used for per-domain overrides where the domain names are not
// known to the subscriber in advance.
func (w *Watcher) SubscribePrefix(prefix string, fn ListenerFunc) {
	w.mu.Lock()
	w.listeners = append(w.listeners, subscription{key: prefix, prefix: true, fn: fn})
	w.mu.Unlock()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll re-parses the file when its identity changed and notifies
// subscribers of every added, changed, or removed key.
//
// A parse that yields no valid entries counts as a failed parse: the
// previous values stay in force and no listeners fire. Removal
// notifications are reserved for keys dropped from a file that still
// carries at least one valid entry.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err == nil {
		w.mu.RLock()
		unchanged := info.ModTime().Equal(w.modTime) && info.Size() == w.size
		w.mu.RUnlock()
		if unchanged {
			return
		}
	}

	parsed, modTime, size := w.parse()

	if len(parsed) == 0 {
		w.mu.Lock()
		hadValues := len(w.values) > 0
		w.modTime = modTime
		w.size = size
		w.mu.Unlock()
		if hadValues {
			w.logger.Warn("overrides parse found no valid entries, keeping previous values", "path", w.path)
		}
		return
	}

	w.mu.Lock()
	prev := w.values
	w.values = parsed
	w.modTime = modTime
	w.size = size
	listeners := make([]subscription, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for key, value := range parsed {
		if old, ok := prev[key]; !ok || old != value {
			w.logger.Debug("override changed", "key", key, "value", value)
			notify(listeners, key, value, true)
		}
	}
	for key := range prev {
		if _, ok := parsed[key]; !ok {
			w.logger.Debug("override removed", "key", key)
			notify(listeners, key, "", false)
		}
	}
}

func notify(listeners []subscription, key, value string, present bool) {
	for _, sub := range listeners {
		switch {
		case sub.prefix && strings.HasPrefix(key, sub.key):
			sub.fn(key, value, present)
		case !sub.prefix && sub.key == key:
			sub.fn(key, value, present)
		}
	}
}

// parse reads the overrides file. A missing or unreadable file parses
// as the empty set. Malformed lines are logged and skipped.
func (w *Watcher) parse() (map[string]string, time.Time, int64) {
	values := make(map[string]string)

	f, err := os.Open(w.path)
	if err != nil {
		return values, time.Time{}, 0
	}
	defer f.Close()

	var modTime time.Time
	var size int64
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, found := strings.Cut(text, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			w.logger.Warn("malformed override line skipped", "path", w.path, "line", line)
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		w.logger.Warn("reading overrides file", "path", w.path, "error", err)
	}

	return values, modTime, size
}
