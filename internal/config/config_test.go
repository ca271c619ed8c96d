package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("DETECTION_MAX_SIZE", "")
	t.Setenv("RECOGNITION_THRESHOLD", "")
	t.Setenv("WORKERS", "")
	t.Setenv("EMBEDDING_CROP_HEIGHT", "")

	cfg := Load()

	if cfg.Detection.MaxSize != 1000 {
		t.Errorf("expected max size 1000, got %d", cfg.Detection.MaxSize)
	}
	if cfg.Detection.ScaleFactor != 1.1 {
		t.Errorf("expected scale factor 1.1, got %v", cfg.Detection.ScaleFactor)
	}
	if cfg.Detection.MinNeighbors != 5 {
		t.Errorf("expected min neighbors 5, got %d", cfg.Detection.MinNeighbors)
	}
	if cfg.Detection.Cascades.Face != "haarcascade_frontalface_alt.xml" {
		t.Errorf("unexpected face cascade %q", cfg.Detection.Cascades.Face)
	}
	if cfg.Recognition.Threshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Recognition.Threshold)
	}
	if cfg.Thumbnail.Height != 200 || cfg.Thumbnail.Quality != 75 {
		t.Errorf("unexpected thumbnail config %+v", cfg.Thumbnail)
	}
	if cfg.Database.SQLitePath != "photo-library.db" {
		t.Errorf("expected default sqlite path, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Database.Driver() != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver())
	}
	if cfg.Embedding.CropHeight != 0 {
		t.Errorf("recognition crops should keep the stored face height, got %d", cfg.Embedding.CropHeight)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/photos")
	t.Setenv("DETECTION_MAX_SIZE", "800")
	t.Setenv("RECOGNITION_THRESHOLD", "0.42")
	t.Setenv("RECOGNITION_NEIGHBORS", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CASCADE_DIR", "/opt/cascades")
	t.Setenv("EMBEDDING_CROP_HEIGHT", "160")

	cfg := Load()

	if cfg.Database.Driver() != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Database.Driver())
	}
	if cfg.Detection.MaxSize != 800 {
		t.Errorf("expected max size 800, got %d", cfg.Detection.MaxSize)
	}
	if cfg.Recognition.Threshold != 0.42 {
		t.Errorf("expected threshold 0.42, got %v", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.Neighbors != 3 {
		t.Errorf("expected 3 neighbors, got %d", cfg.Recognition.Neighbors)
	}
	if cfg.Embedding.CropHeight != 160 {
		t.Errorf("expected crop height 160, got %d", cfg.Embedding.CropHeight)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected lowercased log level, got %q", cfg.Log.Level)
	}
	if got := cfg.Detection.Path("haarcascade_eye.xml"); got != "/opt/cascades/haarcascade_eye.xml" {
		t.Errorf("unexpected cascade path %q", got)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset", "", 7},
		{"valid", "12", 12},
		{"zero", "0", 7},
		{"negative", "-3", 7},
		{"garbage", "abc", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PL_TEST_INT", tt.value)
			if got := envInt("PL_TEST_INT", 7); got != tt.expected {
				t.Errorf("envInt(%q) = %d, want %d", tt.value, got, tt.expected)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := Load()
	cfg.Detection.MaxSize = 0
	cfg.Thumbnail.Quality = 101
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"max size", "thumbnail quality", "log format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}
