package icp

import (
	"math"
	"path/filepath"
	"testing"
)

func TestConfig_DefaultValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate, got %v", err)
	}
}

func TestConfig_Validate_RejectsNonPowerOfTwo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.M = 1000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-power-of-two m")
	}
}

func TestConfig_Validate_RejectsNROverM(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NR = cfg.M * 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when nr > m")
	}
}

func TestConfig_SaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icp.yaml")

	cfg := DefaultConfig()
	cfg.M = 8192
	cfg.NR = 128
	cfg.ColourWeight = 2.5e-6
	cfg.Weighting = Unweighted
	cfg.Rotation = RotationSVD
	cfg.Transform = TransformMatrix

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.M != cfg.M || loaded.NR != cfg.NR {
		t.Errorf("loaded M/NR = %d/%d, want %d/%d", loaded.M, loaded.NR, cfg.M, cfg.NR)
	}
	if math.Abs(loaded.ColourWeight-cfg.ColourWeight) > 1e-12 {
		t.Errorf("loaded ColourWeight = %g, want %g", loaded.ColourWeight, cfg.ColourWeight)
	}
	if loaded.Weighting != cfg.Weighting || loaded.Rotation != cfg.Rotation || loaded.Transform != cfg.Transform {
		t.Errorf("loaded enums = %v/%v/%v, want %v/%v/%v",
			loaded.Weighting, loaded.Rotation, loaded.Transform, cfg.Weighting, cfg.Rotation, cfg.Transform)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[int]bool{1: true, 2: true, 1024: true, 0: false, 3: false, 6: false, -4: false}
	for n, want := range cases {
		if got := isPowerOfTwo(n); got != want {
			t.Errorf("isPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}
