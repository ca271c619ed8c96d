package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-library/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Detection   DetectionConfig   `yaml:"detection"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail"`
	Log         LogConfig
	Server      ServerConfig
	Workers     int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, selects the postgres backend when set
	SQLitePath   string // SQLite database file used when URL is empty
	MaxOpenConns int
	MaxIdleConns int
}

// Driver returns the backend name selected by the configuration.
func (c *DatabaseConfig) Driver() string {
	if c.URL != "" {
		return "postgres"
	}
	return "sqlite"
}

type EmbeddingConfig struct {
	URL        string // face embedding server; empty disables recognition
	CropHeight int    // height of crops sent for embedding, 0 keeps the face height
}

type DetectionConfig struct {
	CascadeDir   string       `yaml:"-"`
	MaxSize      int          `yaml:"max_size"`
	ScaleFactor  float64      `yaml:"scale_factor"`
	MinNeighbors int          `yaml:"min_neighbors"`
	MaxRotation  float64      `yaml:"max_rotation"`
	RectScaleX   float64      `yaml:"rect_scale_x"`
	RectScaleY   float64      `yaml:"rect_scale_y"`
	Cascades     CascadeFiles `yaml:"cascades"`
}

// CascadeFiles names the Haar cascade XML files inside CascadeDir.
type CascadeFiles struct {
	Face     string `yaml:"face"`
	Eye      string `yaml:"eye"`
	LeftEye  string `yaml:"left_eye"`
	RightEye string `yaml:"right_eye"`
}

// Path joins a cascade file name with the configured directory.
func (d *DetectionConfig) Path(name string) string {
	return filepath.Join(d.CascadeDir, name)
}

type RecognitionConfig struct {
	Threshold      float64 `yaml:"threshold"`
	Neighbors      int     `yaml:"neighbors"` // 0 picks round(sqrt(n))
	HNSWMinSamples int     `yaml:"hnsw_min_samples"`
}

type ThumbnailConfig struct {
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"`
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // localhost is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is the float counterpart of envInt.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Database = DatabaseConfig{
		URL:          os.Getenv("DATABASE_URL"),
		SQLitePath:   envString("SQLITE_PATH", "photo-library.db"),
		MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
	}
	cfg.Embedding = EmbeddingConfig{
		URL:        os.Getenv("EMBEDDING_URL"),
		CropHeight: envInt("EMBEDDING_CROP_HEIGHT", 0),
	}
	cfg.Detection.CascadeDir = envString("CASCADE_DIR", "/usr/share/opencv4/haarcascades")
	cfg.Detection.MaxSize = envInt("DETECTION_MAX_SIZE", cfg.Detection.MaxSize)
	cfg.Recognition.Threshold = envFloat("RECOGNITION_THRESHOLD", cfg.Recognition.Threshold)
	cfg.Recognition.Neighbors = envInt("RECOGNITION_NEIGHBORS", cfg.Recognition.Neighbors)
	cfg.Thumbnail.Height = envInt("THUMBNAIL_HEIGHT", cfg.Thumbnail.Height)
	cfg.Thumbnail.Quality = envInt("THUMBNAIL_QUALITY", cfg.Thumbnail.Quality)
	cfg.Log = LogConfig{
		Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
		Format: strings.ToLower(envString("LOG_FORMAT", "text")),
	}
	cfg.Server = ServerConfig{
		Host: envString("SERVER_HOST", "0.0.0.0"),
		Port: envInt("SERVER_PORT", 8085),
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}
	cfg.Workers = envInt("WORKERS", constants.WorkerPoolSize)

	return &cfg
}

// Validate checks values that would make the pipeline misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" && c.Database.SQLitePath == "" {
		errs = append(errs, errors.New("either DATABASE_URL or SQLITE_PATH must be set"))
	}
	if c.Detection.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("detection max size must be positive, got %d", c.Detection.MaxSize))
	}
	if c.Detection.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("detection scale factor must be greater than 1, got %v", c.Detection.ScaleFactor))
	}
	if c.Recognition.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("recognition threshold must be positive, got %v", c.Recognition.Threshold))
	}
	if c.Thumbnail.Quality < 1 || c.Thumbnail.Quality > 100 {
		errs = append(errs, fmt.Errorf("thumbnail quality must be within 1-100, got %d", c.Thumbnail.Quality))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
