// Package manifest handles rpal.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked for by Load and FindAndLoad.
const FileName = "rpal.toml"

// Manifest represents an rpal.toml configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Run     RunConfig    `toml:"run"`
	Cache   CacheConfig  `toml:"cache"`
	Server  ServerConfig `toml:"server"`
	Log     LogConfig    `toml:"log"`

	// Dir is the directory containing the rpal.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// RunConfig configures evaluation.
type RunConfig struct {
	// MaxSteps bounds machine steps for hosted evaluation; 0 is unbounded.
	MaxSteps int `toml:"max-steps"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig configures the evaluation service listeners.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	GRPCAddr string `toml:"grpc-addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no rpal.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".rpal", "cache.db")
	}
	if m.Server.Addr == "" {
		m.Server.Addr = "127.0.0.1:8790"
	}
	if m.Server.GRPCAddr == "" {
		m.Server.GRPCAddr = "127.0.0.1:8791"
	}
	if m.Log.Level == "" {
		m.Log.Level = "notice"
	}
}

// Load parses and validates the rpal.toml file in dir, then applies
// environment overrides.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates rpal.toml content and applies defaults and
// environment overrides. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	m.ApplyEnv()
	return &m, nil
}

// LoadOrDefault loads the nearest rpal.toml above dir, or the defaults with
// environment overrides when there is none.
func LoadOrDefault(dir string) (*Manifest, error) {
	m, err := FindAndLoad(dir)
	if err != nil || m != nil {
		return m, err
	}
	m = Default()
	m.ApplyEnv()
	return m, nil
}

// FindAndLoad walks up from startDir to find an rpal.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CachePath returns the cache database path, resolved against Dir when
// relative.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// Verbosity maps Log.Level to the verbosity scale of commonlog.Configure.
func (m *Manifest) Verbosity() int {
	switch m.Log.Level {
	case "none":
		return -4
	case "critical":
		return -3
	case "error":
		return -2
	case "warning":
		return -1
	case "info":
		return 1
	case "debug":
		return 2
	}
	return 0
}
