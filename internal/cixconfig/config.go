// Package cixconfig provides configuration loading for the cix tools.
//
// It supports three configuration formats:
//   - cix.star: Starlark configuration with a configure() function
//   - cix.toml: declarative TOML configuration
//   - cix.yaml: declarative YAML configuration
//
// Configuration files are discovered by walking up the directory tree from
// the current directory, stopping at the git root. The CIX_CONFIG
// environment variable names a file explicitly.
package cixconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
	"github.com/albertocavalcante/cix/internal/cicode/builtins/loader"
	"github.com/albertocavalcante/cix/internal/cicode/discovery"
	"github.com/albertocavalcante/cix/internal/cicode/indexer"
	"github.com/albertocavalcante/cix/internal/version"
)

// Config file names in priority order.
const (
	ConfigStar = "cix.star"
	ConfigTOML = "cix.toml"
	ConfigYAML = "cix.yaml"
)

// EnvConfig is the environment variable for specifying config file path.
const EnvConfig = "CIX_CONFIG"

// ErrConflict is returned when multiple config files exist in the same directory.
var ErrConflict = errors.New("multiple config files found in the same directory; use only one")

// Config represents the cix configuration.
type Config struct {
	// Index configures workspace discovery and re-indexing.
	Index IndexConfig `json:"index" toml:"index" yaml:"index"`

	// Check configures the diagnostics.
	Check CheckConfig `json:"check" toml:"check" yaml:"check"`
}

// IndexConfig contains indexer configuration.
type IndexConfig struct {
	// Exclude holds glob patterns relative to the workspace root.
	Exclude []string `json:"exclude" toml:"exclude" yaml:"exclude"`

	// Extensions are the source file extensions, with the leading dot.
	Extensions []string `json:"extensions" toml:"extensions" yaml:"extensions"`

	// Debounce is the quiet period before a changed file is re-indexed.
	Debounce Duration `json:"debounce" toml:"debounce" yaml:"debounce"`

	// Builtins is a JSON builtins file. Empty uses the embedded table.
	Builtins string `json:"builtins" toml:"builtins" yaml:"builtins"`

	// BuiltinsCache is the binary cache file for the builtins table.
	BuiltinsCache string `json:"builtins_cache" toml:"builtins_cache" yaml:"builtins_cache"`
}

// CheckConfig contains checker configuration.
type CheckConfig struct {
	// Disable lists diagnostic codes that are not reported.
	Disable []string `json:"disable" toml:"disable" yaml:"disable"`
}

// Duration wraps time.Duration for TOML/YAML/JSON string parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return nil, nil
	}
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Extensions: append([]string(nil), discovery.DefaultExtensions...),
			Debounce:   Duration{indexer.DefaultDebounce},
		},
	}
}

// LoadConfig loads configuration from the specified path.
// The format is auto-detected based on file extension. Relative paths in
// the file are resolved against its directory.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	ext := filepath.Ext(path)
	switch ext {
	case ".toml":
		cfg, err = LoadTOMLConfig(path)
	case ".yaml", ".yml":
		cfg, err = LoadYAMLConfig(path)
	case ".star":
		cfg, err = LoadStarlarkConfig(path, DefaultStarlarkTimeout)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s (expected .star, .toml, or .yaml)", ext)
	}
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Index.Builtins, &c.Index.BuiltinsCache} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// DiscoverConfig searches for a configuration file.
//
// Resolution order:
//  1. If CIX_CONFIG env var is set, use that path
//  2. Walk up from startDir looking for config files, stopping at the git root
//
// If multiple config files exist in the same directory, an error is returned.
// Returns the loaded config, the path to the config file, and any error.
// If no config is found, returns (DefaultConfig(), "", nil).
func DiscoverConfig(startDir string) (*Config, string, error) {
	// Check environment variable first
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := LoadConfig(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	// Find git root to limit search
	gitRoot := findGitRoot(absDir)

	dir := absDir
	for {
		configPath, err := findConfigInDir(dir)
		if err != nil {
			return nil, "", err
		}
		if configPath != "" {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, "", err
			}
			return cfg, configPath, nil
		}

		if gitRoot != "" && dir == gitRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}

	return DefaultConfig(), "", nil
}

// findConfigInDir returns the config file in dir, "" if there is none, or
// ErrConflict if there are several.
func findConfigInDir(dir string) (string, error) {
	var found []string
	for _, name := range []string{ConfigStar, ConfigTOML, ConfigYAML} {
		if fileExists(filepath.Join(dir, name)) {
			found = append(found, name)
		}
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", fmt.Errorf("%w: found %s in %s", ErrConflict, strings.Join(found, ", "), dir)
	}
}

// fileExists returns true if the file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot finds the git repository root from a starting directory.
// Returns empty string if not in a git repository.
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// BuiltinsProvider returns the provider for the configured builtins table:
// the JSON file when set, else the embedded table, behind the binary cache
// when one is configured.
func (c *Config) BuiltinsProvider() builtins.Provider {
	var source builtins.Provider = loader.NewDefaultProvider()
	key := "embedded"
	if c.Index.Builtins != "" {
		source = loader.NewJSONProvider(c.Index.Builtins)
		key = c.Index.Builtins
		if info, err := os.Stat(c.Index.Builtins); err == nil {
			key = fmt.Sprintf("%s@%d", key, info.ModTime().UnixNano())
		}
	}
	if c.Index.BuiltinsCache == "" {
		return source
	}
	return loader.NewCacheProvider(c.Index.BuiltinsCache, key+"#"+version.Version, source)
}
