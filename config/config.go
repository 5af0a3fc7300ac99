// Package config reads the optional YAML configuration of the viewer.
package config

import (
	"fmt"
	"os"

	"github.com/astei/anvilview/mcversion"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no config path is given.
const EnvPath = "ANVILVIEW_CONFIG"

const DefaultCacheDir = "./.minecraft_cache"

type Config struct {
	CacheDir string          `yaml:"cache_dir"`
	Launcher LauncherConfig  `yaml:"launcher"`
	Versions VersionsConfig  `yaml:"versions"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Dims     []DimensionSpec `yaml:"dimensions"`
}

type LauncherConfig struct {
	// Dir overrides the detected launcher directory; Disabled skips launcher jars entirely.
	Dir      string `yaml:"dir"`
	Disabled bool   `yaml:"disabled"`
}

type VersionsConfig struct {
	ManifestURL string `yaml:"manifest_url"`
	ReportURL   string `yaml:"report_url"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DimensionSpec registers a modded dimension in addition to the vanilla ones.
type DimensionSpec struct {
	ID   string `yaml:"id"`
	MinY int    `yaml:"min_y"`
	MaxY int    `yaml:"max_y"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		CacheDir: DefaultCacheDir,
		Versions: VersionsConfig{
			ManifestURL: mcversion.DefaultManifestURL,
			ReportURL:   mcversion.DefaultReportURL,
		},
	}
}

// LauncherDir returns the launcher directory to search for jars, or "" when there is none.
func (c *Config) LauncherDir() string {
	if c.Launcher.Disabled {
		return ""
	}
	if c.Launcher.Dir != "" {
		return c.Launcher.Dir
	}
	dir, _ := mcversion.LauncherDir()
	return dir
}

// Load reads the YAML file at path over the defaults. With an empty path the file named by
// ANVILVIEW_CONFIG is read; if that is unset too the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	for _, dim := range cfg.Dims {
		if dim.ID == "" || dim.MaxY <= dim.MinY || dim.MinY%16 != 0 || dim.MaxY%16 != 0 {
			return nil, fmt.Errorf("%s: invalid dimension %q spanning [%d, %d)", path, dim.ID, dim.MinY, dim.MaxY)
		}
	}
	return cfg, nil
}
