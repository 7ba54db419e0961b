package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "COLLMOCK_CONFIG"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "collmock.yaml"

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Config is the complete runtime configuration.
type Config struct {
	// CollectionsDir holds the source collection documents.
	CollectionsDir string `yaml:"collectionsDir" json:"collectionsDir"`

	// Pattern selects collection files inside CollectionsDir. Supports **.
	Pattern string `yaml:"pattern" json:"pattern"`

	// DataDir receives one dataset record per collection.
	DataDir string `yaml:"dataDir" json:"dataDir"`

	// EndpointsDir receives one endpoint stub per route.
	EndpointsDir string `yaml:"endpointsDir" json:"endpointsDir"`

	// MountPrefix is the path under which the mock API is served.
	MountPrefix string `yaml:"mountPrefix" json:"mountPrefix"`

	// Listen is the HTTP listen address of the serve command.
	Listen string `yaml:"listen" json:"listen"`

	// Watch rebuilds whenever the collections directory changes.
	Watch bool `yaml:"watch" json:"watch"`

	// PollInterval switches the watcher to polling when non-zero.
	PollInterval time.Duration `yaml:"pollInterval" json:"pollInterval"`

	// FromDisk makes the resolver read records from DataDir instead of memory.
	FromDisk bool `yaml:"fromDisk" json:"fromDisk"`

	Log LogConfig `yaml:"log" json:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		CollectionsDir: "postman_collections",
		Pattern:        "*.json",
		DataDir:        "mock_data",
		EndpointsDir:   "endpoints",
		MountPrefix:    "/api",
		Listen:         ":3000",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var mountPattern = regexp.MustCompile(`^(/?[A-Za-z0-9._~-]+)*/?$`)

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CollectionsDir, validation.Required),
		validation.Field(&c.Pattern, validation.Required, validation.By(validPattern)),
		validation.Field(&c.DataDir, validation.Required, validation.By(disjointFrom("collectionsDir", c.CollectionsDir))),
		validation.Field(&c.EndpointsDir, validation.Required,
			validation.By(disjointFrom("collectionsDir", c.CollectionsDir)),
			validation.By(disjointFrom("dataDir", c.DataDir))),
		validation.Field(&c.MountPrefix, validation.Match(mountPattern)),
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.PollInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.Log),
	)
}

// Validate checks the logging configuration.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error",
			"DEBUG", "INFO", "WARN", "WARNING", "ERROR")),
		validation.Field(&l.Format, validation.In("text", "json", "TEXT", "JSON")),
	)
}

func validPattern(value any) error {
	s, _ := value.(string)
	if !doublestar.ValidatePattern(s) {
		return fmt.Errorf("invalid glob pattern %q", s)
	}
	return nil
}

// disjointFrom rejects a directory that equals other, lies inside it, or
// contains it. Generated files written under the collections directory would
// otherwise retrigger the watcher on every rebuild.
func disjointFrom(name, other string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" || other == "" {
			return nil
		}
		a, b := filepath.Clean(s), filepath.Clean(other)
		if a == b {
			return fmt.Errorf("must differ from %s", name)
		}
		if within(a, b) || within(b, a) {
			return fmt.Errorf("must not overlap %s", name)
		}
		return nil
	}
}

// within reports whether dir lies below parent. Paths that cannot be related
// (one absolute, one relative) are treated as unrelated.
func within(dir, parent string) bool {
	rel, err := filepath.Rel(parent, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FindPath returns the config file to load: explicit if set, then
// $COLLMOCK_CONFIG, then collmock.yaml in the working directory if it exists.
// It returns "" when there is no config file.
func FindPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	if info, err := os.Stat(DefaultFileName); err == nil && !info.IsDir() {
		return DefaultFileName
	}
	return ""
}

// Load reads a YAML config file over the defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ResolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return cfg, nil
}

// ResolvePaths makes relative directories relative to baseDir.
func (c *Config) ResolvePaths(baseDir string) {
	for _, p := range []*string{&c.CollectionsDir, &c.DataDir, &c.EndpointsDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}
