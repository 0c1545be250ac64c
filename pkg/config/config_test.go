package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Load.Spectra != "NIR" || cfg.Load.SubsampleImage != 10 {
		t.Errorf("Expected default load parameters, got %+v", cfg.Load)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsg2zarr.yaml")
	cfg := DefaultConfig()
	cfg.Load.Spectra = "TIR"
	cfg.Load.IndexCoord = "depth"
	cfg.Output.Workers = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Load.Spectra != "TIR" || loaded.Load.IndexCoord != "depth" {
		t.Errorf("Expected the saved load parameters back, got %+v", loaded.Load)
	}
	if loaded.Output.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", loaded.Output.Workers)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsg2zarr.yaml")
	partial := "load:\n  spectra: TIR\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Load.Spectra != "TIR" {
		t.Errorf("Expected the file's subset, got %s", cfg.Load.Spectra)
	}
	if cfg.Load.SubsampleImage != 10 {
		t.Errorf("Expected unset fields to keep their defaults, got %d", cfg.Load.SubsampleImage)
	}
}
