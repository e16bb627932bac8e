package segment

import (
	"path/filepath"
	"testing"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	b := NewBloom()
	keys := []string{"alpha", "beta", "gamma", "delta"}
	for _, k := range keys {
		b.Add([]byte(k))
	}
	for _, k := range keys {
		if !b.MayContain([]byte(k)) {
			t.Fatalf("bloom filter produced a false negative for %q", k)
		}
	}
}

func TestBloomSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.bloom")

	b := NewBloom()
	keys := []string{"foo", "bar", "baz"}
	for _, k := range keys {
		b.Add([]byte(k))
	}
	if err := b.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadBloom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("expected a loaded filter")
	}
	for _, k := range keys {
		if !loaded.MayContain([]byte(k)) {
			t.Fatalf("loaded filter missing %q", k)
		}
	}
}

func TestLoadBloomMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	loaded, err := LoadBloom(filepath.Join(dir, "absent.bloom"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatal("expected nil filter for missing sidecar")
	}
}
