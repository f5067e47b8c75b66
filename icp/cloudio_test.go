package icp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadCloud_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bin")

	c := MakeCloud(16)
	for i := 0; i < 16; i++ {
		c.Set(i, Point8{
			float32(i), float32(i) * 2, float32(i) * 3, 1,
			0.1, 0.2, 0.3, 1,
		})
	}

	if err := SaveCloud(path, c); err != nil {
		t.Fatalf("SaveCloud: %v", err)
	}

	loaded, err := LoadCloud(path)
	if err != nil {
		t.Fatalf("LoadCloud: %v", err)
	}
	if loaded.Len() != c.Len() {
		t.Fatalf("loaded %d points, want %d", loaded.Len(), c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		if loaded.At(i) != c.At(i) {
			t.Errorf("point %d: got %v, want %v", i, loaded.At(i), c.At(i))
		}
	}
}

func TestLoadCloud_InvalidShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(path, make([]byte, 13), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := LoadCloud(path)
	if !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}
