package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	o := New()

	if o.DataDir != "." {
		t.Errorf("DataDir = %q", o.DataDir)
	}
	if o.FlushThresholdMiB != defaultFlushThresholdMiB {
		t.Errorf("FlushThresholdMiB = %v", o.FlushThresholdMiB)
	}
	if o.FlushPollInterval != defaultFlushPollInterval {
		t.Errorf("FlushPollInterval = %v", o.FlushPollInterval)
	}
	if o.CompactionPollInterval != defaultCompactionPollInterval {
		t.Errorf("CompactionPollInterval = %v", o.CompactionPollInterval)
	}
	if o.CompactionSizeLimitMiB != defaultCompactionSizeLimitMiB {
		t.Errorf("CompactionSizeLimitMiB = %v", o.CompactionSizeLimitMiB)
	}
	if o.ListenAddress != defaultListenAddress {
		t.Errorf("ListenAddress = %q", o.ListenAddress)
	}
	if o.Logger == nil {
		t.Error("Logger must never be nil")
	}
}

func TestNewAppliesOverrides(t *testing.T) {
	o := New(
		WithDataDir("/tmp/kv"),
		WithFlushThresholdMiB(4),
		WithFlushPollInterval(2*time.Second),
		WithCompactionPollInterval(500*time.Millisecond),
		WithCompactionSizeLimitMiB(10),
		WithListenAddress("0.0.0.0:9000"),
	)

	if o.DataDir != "/tmp/kv" {
		t.Errorf("DataDir = %q", o.DataDir)
	}
	if o.FlushThresholdMiB != 4 {
		t.Errorf("FlushThresholdMiB = %v", o.FlushThresholdMiB)
	}
	if o.FlushPollInterval != 2*time.Second {
		t.Errorf("FlushPollInterval = %v", o.FlushPollInterval)
	}
	if o.CompactionPollInterval != 500*time.Millisecond {
		t.Errorf("CompactionPollInterval = %v", o.CompactionPollInterval)
	}
	if o.CompactionSizeLimitMiB != 10 {
		t.Errorf("CompactionSizeLimitMiB = %v", o.CompactionSizeLimitMiB)
	}
	if o.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("ListenAddress = %q", o.ListenAddress)
	}
}

func TestWithLoggerNilIsNoop(t *testing.T) {
	o := New(WithLogger(nil))
	if o.Logger == nil {
		t.Error("Logger must never be nil even when WithLogger(nil) is passed")
	}
}
