package resume

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/session"
)

// DefaultPollInterval is how often the slot is re-read when change
// notifications are missed.
const DefaultPollInterval = 2 * time.Second

// Watcher reconciles the slot with what was last seen and reports changes.
// Two triggers drive the same Reconcile: a fixed poll and kv change
// notifications. Redundant triggers are harmless.
type Watcher struct {
	store    *Store
	onChange func(*session.Session)
	log      *zap.Logger

	mu       sync.Mutex
	lastID   string
	lastMod  time.Time
	lastSeen bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts a watcher. onChange receives the new slot contents, or nil
// when the slot was emptied or ended elsewhere. The current contents are
// taken as the baseline and not reported. Callers must Stop the watcher.
func (s *Store) Watch(ctx context.Context, interval time.Duration, onChange func(*session.Session)) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		store:    s,
		onChange: onChange,
		log:      s.log,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	w.check(false)

	notify, err := s.kv.Watch(ctx, s.key)
	if err != nil {
		s.log.Warn("change notifications unavailable, polling only", zap.Error(err))
		notify = nil
	}

	go w.run(ctx, interval, notify)
	return w
}

func (w *Watcher) run(ctx context.Context, interval time.Duration, notify <-chan struct{}) {
	defer close(w.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Reconcile()
		case _, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			w.Reconcile()
		}
	}
}

// Reconcile re-reads the slot and reports a change since the last call.
func (w *Watcher) Reconcile() {
	w.check(true)
}

func (w *Watcher) check(report bool) {
	sess, err := w.store.Load()
	if err != nil {
		w.log.Warn("reconcile resumable slot", zap.Error(err))
		return
	}

	w.mu.Lock()
	changed := false
	switch {
	case sess == nil:
		changed = w.lastSeen
		w.lastSeen = false
		w.lastID = ""
		w.lastMod = time.Time{}
	case !w.lastSeen || sess.ID != w.lastID || !sess.LastModified.Equal(w.lastMod):
		changed = true
		w.lastSeen = true
		w.lastID = sess.ID
		w.lastMod = sess.LastModified
	}
	w.mu.Unlock()

	if changed && report && w.onChange != nil {
		w.onChange(sess)
	}
}

// Stop tears down both triggers and waits for the loop to exit. No
// callback starts after Stop returns.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}
