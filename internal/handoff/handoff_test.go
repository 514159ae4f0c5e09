package handoff

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"support_pipeline/internal/transcript"
	"support_pipeline/internal/turns"
)

func newStore(t *testing.T) *transcript.Store {
	dir := t.TempDir()
	return transcript.NewStore(filepath.Join(dir, "t.csv"), filepath.Join(dir, "stamp.json"))
}

func write(t *testing.T, store *transcript.Store, fileName string) {
	t.Helper()
	err := store.Write([]turns.LabeledTurn{{Speaker: "A", Text: "x"}}, transcript.WriteMeta{UploadID: "u", FileName: fileName})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWaitTimeoutZeroAlwaysPossiblyStale(t *testing.T) {
	store := newStore(t)
	write(t, store, "call.m4a")
	s := New(store, 10*time.Millisecond)

	res := s.Wait(context.Background(), Expect{FileName: "call.m4a"}, 0)
	if res.Fresh {
		t.Fatal("timeout 0 must skip waiting and report possibly stale")
	}
	if res.Stamp.Version != 1 {
		t.Fatalf("expected current stamp returned, got %+v", res.Stamp)
	}
}

func TestWaitFreshWhenStampAlreadyMatches(t *testing.T) {
	store := newStore(t)
	write(t, store, "call.m4a")
	s := New(store, 10*time.Millisecond)

	res := s.Wait(context.Background(), Expect{FileName: "call.m4a"}, time.Second)
	if !res.Fresh {
		t.Fatal("expected fresh result for matching stamp")
	}
}

func TestWaitFreshAfterConcurrentWrite(t *testing.T) {
	store := newStore(t)
	s := New(store, 10*time.Millisecond)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = store.Write([]turns.LabeledTurn{{Speaker: "A", Text: "x"}}, transcript.WriteMeta{UploadID: "u", FileName: "call.m4a"})
	}()

	start := time.Now()
	res := s.Wait(context.Background(), Expect{FileName: "call.m4a"}, 5*time.Second)
	if !res.Fresh {
		t.Fatalf("expected fresh result, got %+v", res)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("wait took too long; watcher/poll did not fire")
	}
}

func TestWaitTimesOutOnWrongUpload(t *testing.T) {
	store := newStore(t)
	write(t, store, "other.m4a")
	s := New(store, 10*time.Millisecond)

	res := s.Wait(context.Background(), Expect{FileName: "call.m4a"}, 100*time.Millisecond)
	if res.Fresh {
		t.Fatal("expected possibly-stale result for mismatched upload")
	}
	if res.Stamp.FileName != "other.m4a" {
		t.Fatalf("expected current stamp in result, got %+v", res.Stamp)
	}
}

func TestWaitBaselineAdvance(t *testing.T) {
	store := newStore(t)
	write(t, store, "first.m4a")
	s := New(store, 10*time.Millisecond)

	baseline := s.Baseline()
	if baseline != 1 {
		t.Fatalf("expected baseline 1, got %d", baseline)
	}

	// No name known: same version is not fresh.
	res := s.Wait(context.Background(), Expect{Baseline: baseline}, 100*time.Millisecond)
	if res.Fresh {
		t.Fatal("expected stale result without a version advance")
	}

	write(t, store, "second.m4a")
	res = s.Wait(context.Background(), Expect{Baseline: baseline}, time.Second)
	if !res.Fresh {
		t.Fatal("expected fresh result after version advance")
	}
}

func TestWaitHonorsContextCancel(t *testing.T) {
	store := newStore(t)
	s := New(store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	res := s.Wait(ctx, Expect{FileName: "never.m4a"}, 10*time.Second)
	if res.Fresh {
		t.Fatal("expected stale result on cancel")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancel did not interrupt wait")
	}
}
