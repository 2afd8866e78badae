package viewstate

import (
	"context"
	"sync"
	"time"

	"trade-viewer/internal/logger"
)

const DefaultWatchInterval = time.Second

// FileWatcher is a Notifier for processes that share one FileStorage file.
// It polls the file, diffs it against the last contents it saw and publishes
// a Change for every key another process wrote or removed.
// Changes published in-process reach local subscribers immediately.
type FileWatcher struct {
	storage  *FileStorage
	interval time.Duration
	origin   string
	bus      *MemoryBus
	log      *logger.Entry

	mu   sync.Mutex
	last map[string]string

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewFileWatcher(storage *FileStorage, interval time.Duration, log *logger.Log) *FileWatcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	w := &FileWatcher{
		storage:  storage,
		interval: interval,
		origin:   "file:" + storage.Path(),
		bus:      NewMemoryBus(),
		log:      log.WithComponent("viewstate-watch"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	last, err := storage.Snapshot()
	if err != nil {
		w.log.WithError(err).Warn("storage file unreadable, watching from empty state")
		last = make(map[string]string)
	}
	w.last = last
	go w.loop()
	return w
}

// Publish records a write this process already made and hands it to local
// subscribers. The next poll will not announce it again.
func (w *FileWatcher) Publish(ctx context.Context, change Change) error {
	w.mu.Lock()
	if change.NewValue == nil {
		delete(w.last, change.Key)
	} else {
		w.last[change.Key] = *change.NewValue
	}
	w.mu.Unlock()
	return w.bus.Publish(ctx, change)
}

func (w *FileWatcher) Subscribe(fn func(Change)) func() {
	return w.bus.Subscribe(fn)
}

// Close stops polling. It is safe to call more than once.
func (w *FileWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done
	})
	return nil
}

func (w *FileWatcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *FileWatcher) scan() {
	current, err := w.storage.Snapshot()
	if err != nil {
		w.log.WithError(err).Debug("storage file unreadable, skipping poll")
		return
	}

	w.mu.Lock()
	changes := diffValues(w.last, current, w.origin)
	w.last = current
	w.mu.Unlock()

	for _, change := range changes {
		_ = w.bus.Publish(context.Background(), change)
	}
}

// diffValues lists the changes that turn before into after.
func diffValues(before, after map[string]string, origin string) []Change {
	var changes []Change
	for key, v := range after {
		if old, ok := before[key]; ok && old == v {
			continue
		}
		value := v
		changes = append(changes, Change{Key: key, NewValue: &value, Origin: origin})
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			changes = append(changes, Change{Key: key, Origin: origin})
		}
	}
	return changes
}
