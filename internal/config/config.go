package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/arcanaland/ttsdeck/internal/imageio"
)

// Slot ids are pageNumber*100 + index, a page can never hold more cards.
const MaxCardsPerPage = 100

// ZeroCopyPolicy decides what happens to cards with a copy count of 0.
type ZeroCopyPolicy string

const (
	// ZeroCopiesExclude leaves the card cell blank and emits no slot.
	ZeroCopiesExclude ZeroCopyPolicy = "exclude"
	// ZeroCopiesPlaceholder renders the card and emits a single slot.
	ZeroCopiesPlaceholder ZeroCopyPolicy = "placeholder"
)

// Config represents the application configuration
type Config struct {
	Format        string        `toml:"format"`
	Resolution    int           `toml:"resolution"`
	JPEGQuality   int           `toml:"jpeg_quality"`
	CardsPerPage  int           `toml:"cards_per_page"`
	MaxRows       int           `toml:"max_rows"`
	DefaultCopies int           `toml:"default_copies"`
	ZeroCopies    string        `toml:"zero_copies"`
	URLPrefix     string        `toml:"url_prefix,omitempty"`
	CacheDir      string        `toml:"cache_dir,omitempty"`
	Logging       LoggingConfig `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:        string(imageio.JPEG),
		Resolution:    200,
		JPEGQuality:   imageio.DefaultJPEGQuality,
		CardsPerPage:  69,
		MaxRows:       7,
		DefaultCopies: 1,
		ZeroCopies:    string(ZeroCopiesExclude),
		Logging:       LoggingConfig{Level: "normal"},
	}
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetXDGCacheHome returns XDG_CACHE_HOME or default path
func GetXDGCacheHome() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return xdgCache
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".cache")
}

// GetCacheDir returns the per-user cache directory of the tool
func GetCacheDir() string {
	return filepath.Join(GetXDGCacheHome(), "ttsdeck")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), "ttsdeck", "config.toml")
}

// LoadConfig loads the config file, creating it with defaults on first use
func LoadConfig() (*Config, error) {
	configPath := GetConfigFilePath()

	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile decodes path on top of the defaults.
func LoadConfigFile(path string) (*Config, error) {
	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}
	return config, nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(configPath string) (*Config, error) {
	// Ensure the config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating config directory: %w", err)
	}

	config := Default()
	if err := config.Save(configPath); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(c); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return nil
}

// Overrides replace configured values for one run. Zero values are ignored.
type Overrides struct {
	Format     string
	Resolution int
	CacheDir   string
}

// Settings is the validated, immutable per-run configuration handed to the
// export engine.
type Settings struct {
	Format        imageio.Format
	Resolution    int // pixels per inch
	JPEGQuality   int
	CardsPerPage  int
	MaxRows       int
	DefaultCopies int
	ZeroCopies    ZeroCopyPolicy
	URLPrefix     string
	CacheDir      string // empty means project local
}

// Settings applies overrides in order and validates the result.
func (c *Config) Settings(overrides ...Overrides) (Settings, error) {
	format, resolution, cacheDir := c.Format, c.Resolution, c.CacheDir
	for _, o := range overrides {
		if o.Format != "" {
			format = o.Format
		}
		if o.Resolution != 0 {
			resolution = o.Resolution
		}
		if o.CacheDir != "" {
			cacheDir = o.CacheDir
		}
	}

	f, err := imageio.ParseFormat(format)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Format:        f,
		Resolution:    resolution,
		JPEGQuality:   c.JPEGQuality,
		CardsPerPage:  c.CardsPerPage,
		MaxRows:       c.MaxRows,
		DefaultCopies: c.DefaultCopies,
		ZeroCopies:    ZeroCopyPolicy(c.ZeroCopies),
		URLPrefix:     c.URLPrefix,
		CacheDir:      cacheDir,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges the engine relies on.
func (s Settings) Validate() error {
	switch {
	case s.Resolution <= 0:
		return fmt.Errorf("resolution must be positive, got %d", s.Resolution)
	case s.CardsPerPage < 1 || s.CardsPerPage > MaxCardsPerPage:
		return fmt.Errorf("cards_per_page must be between 1 and %d, got %d", MaxCardsPerPage, s.CardsPerPage)
	case s.MaxRows < 1:
		return fmt.Errorf("max_rows must be positive, got %d", s.MaxRows)
	case s.DefaultCopies < 0:
		return fmt.Errorf("default_copies must not be negative, got %d", s.DefaultCopies)
	case s.JPEGQuality < 0 || s.JPEGQuality > 100:
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", s.JPEGQuality)
	}
	switch s.ZeroCopies {
	case ZeroCopiesExclude, ZeroCopiesPlaceholder:
	default:
		return fmt.Errorf("unsupported zero_copies policy: %q (supported: exclude, placeholder)", s.ZeroCopies)
	}
	return nil
}

// DefaultSettings returns validated built-in settings.
func DefaultSettings() Settings {
	s, err := Default().Settings()
	if err != nil {
		panic(err)
	}
	return s
}
