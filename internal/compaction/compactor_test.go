package compaction

import (
	"context"
	"testing"
	"time"

	"github.com/flashkv/flashkv/internal/config"
	"github.com/flashkv/flashkv/internal/engine"
)

func TestSweepMergesTwoOldestSmallSegments(t *testing.T) {
	opts := config.New(
		config.WithDataDir(t.TempDir()),
		config.WithCompactionSizeLimitMiB(1024),
	)
	eng, err := engine.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	// Three independent flushes produce three distinct segments. Each
	// flush must land in its own second to avoid stem collisions, so
	// we drive TryFlush through the engine directly with threshold 0.
	writeAndFlush := func(key, value string) {
		if err := eng.Set([]byte(key), []byte(value)); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.TryFlush(0); err != nil {
			t.Fatal(err)
		}
		time.Sleep(1100 * time.Millisecond)
	}

	writeAndFlush("aaa", "first")
	writeAndFlush("bbb", "second")
	writeAndFlush("ccc", "third")

	stemsBefore, err := eng.Directory().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(stemsBefore) != 3 {
		t.Fatalf("expected 3 segments before compaction, got %d", len(stemsBefore))
	}

	c := New(eng)
	if err := c.sweep(); err != nil {
		t.Fatal(err)
	}

	stemsAfter, err := eng.Directory().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(stemsAfter) != 2 {
		t.Fatalf("expected 2 segments after one merge, got %d", len(stemsAfter))
	}

	for _, want := range []string{"aaa", "bbb", "ccc"} {
		if _, err := eng.Get([]byte(want)); err != nil {
			t.Errorf("Get(%q) after compaction: %v", want, err)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	opts := config.New(
		config.WithDataDir(t.TempDir()),
		config.WithCompactionPollInterval(5*time.Millisecond),
	)
	eng, err := engine.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(eng)

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
