package handoff

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"support_pipeline/internal/transcript"
)

// StampSource exposes the transcript store's readiness stamp.
type StampSource interface {
	ReadStamp() (transcript.Stamp, error)
	StampPath() string
}

// Expect describes the upload a reader is waiting for. FileName may be empty
// when the upload identity is unknown; Baseline is the stamp version observed
// when the request arrived.
type Expect struct {
	FileName string
	Baseline uint64
}

// Result reports how the wait ended. When Fresh is false the caller proceeds
// against whatever is present and must tag the outcome possibly stale.
type Result struct {
	Fresh bool
	Stamp transcript.Stamp
}

// Synchronizer blocks a reader until the transcript store reflects the
// expected upload, or a bounded timeout elapses. It watches the stamp file
// with fsnotify and falls back to polling; it never blocks indefinitely.
type Synchronizer struct {
	store StampSource
	poll  time.Duration
}

func New(store StampSource, poll time.Duration) *Synchronizer {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Synchronizer{store: store, poll: poll}
}

// Baseline returns the current stamp version, 0 if no stamp exists.
func (s *Synchronizer) Baseline() uint64 {
	stamp, err := s.store.ReadStamp()
	if err != nil {
		return 0
	}
	return stamp.Version
}

// Wait blocks until the stamp signals freshness for want or timeout elapses.
// A timeout of zero (or less) skips waiting entirely and reports the current
// contents as possibly stale.
func (s *Synchronizer) Wait(ctx context.Context, want Expect, timeout time.Duration) Result {
	if timeout <= 0 {
		stamp, _ := s.store.ReadStamp()
		return Result{Fresh: false, Stamp: stamp}
	}
	if res, ok := s.check(want); ok {
		return res
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	events := s.watchStamp(ctx)

	for {
		select {
		case <-ctx.Done():
			stamp, _ := s.store.ReadStamp()
			return Result{Fresh: false, Stamp: stamp}
		case <-deadline.C:
			stamp, _ := s.store.ReadStamp()
			return Result{Fresh: false, Stamp: stamp}
		case <-ticker.C:
		case <-events:
		}
		if res, ok := s.check(want); ok {
			return res
		}
	}
}

// check reports freshness: the stamp names the expected upload, or (when no
// name is expected) its version advanced past the baseline.
func (s *Synchronizer) check(want Expect) (Result, bool) {
	stamp, err := s.store.ReadStamp()
	if err != nil || stamp.Version == 0 {
		return Result{}, false
	}
	if want.FileName != "" {
		if stamp.FileName == want.FileName {
			return Result{Fresh: true, Stamp: stamp}, true
		}
		return Result{}, false
	}
	if stamp.Version > want.Baseline {
		return Result{Fresh: true, Stamp: stamp}, true
	}
	return Result{}, false
}

// watchStamp delivers a signal whenever the stamp file changes. Watch setup
// failures degrade to the poll ticker alone.
func (s *Synchronizer) watchStamp(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	path := s.store.StampPath()
	if path == "" {
		return ch
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("handoff: stamp watch unavailable, polling only: %v", err)
		return ch
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		log.Printf("handoff: stamp watch unavailable, polling only: %v", err)
		return ch
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Name != path {
					continue
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					select {
					case ch <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("handoff: stamp watch error: %v", err)
			}
		}
	}()
	return ch
}
