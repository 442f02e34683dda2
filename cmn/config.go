// Package cmn provides the configuration types and loader shared by the
// weatherd daemon and the weatherctl CLI.
package cmn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/pelletier/go-toml/v2"
)

// Config holds every runtime option the daemon and CLI accept.
type Config struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	RemoteURL string `toml:"remote_url"`

	WeatherDir       string `toml:"weather_dir"`
	EventDB          string `toml:"event_db"`
	OraclePrivateKey string `toml:"oracle_private_key"`

	SleepInterval Duration `toml:"sleep_interval"`

	RefillRate    float64 `toml:"refill_rate"`
	TokenCapacity int     `toml:"token_capacity"`

	UserAgent string `toml:"user_agent"`

	S3Bucket   string `toml:"s3_bucket"`
	S3Endpoint string `toml:"s3_endpoint"`

	Level string `toml:"level"`
}

// Duration unmarshals TOML strings like "1h" into time.Duration.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in defaults, applied before any file/env/CLI
// layer is merged on top.
func Default() Config {
	return Config{
		Host:          "127.0.0.1",
		Port:          8080,
		WeatherDir:    "./data/weather",
		EventDB:       "./data/events",
		SleepInterval: Duration{time.Hour},
		RefillRate:    5,
		TokenCapacity: 10,
		UserAgent:     "weather-oracle/1.0",
		Level:         "info",
	}
}

// CLIOverride carries the "-config=" flag value and the loading binary's
// kind; DiscoverPath consults ConfigPath before any other location.
// Nothing from it is merged after the file is loaded.
type CLIOverride struct {
	ConfigPath string
	Kind       string // "weatherd" | "weatherctl"
}

// DiscoverPath resolves the config location: CLI flag, env var,
// ./{kind}.toml, $XDG_CONFIG_HOME/{app}/{kind}.toml,
// /etc/{app}/{kind}.toml, first hit wins.
func DiscoverPath(o CLIOverride) (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	envKey := "WEATHERD_CONFIG"
	if o.Kind == "weatherctl" {
		envKey = "WEATHERCTL_CONFIG"
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	candidates := []string{
		filepath.Join(".", o.Kind+".toml"),
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "weather-oracle", o.Kind+".toml"))
	}
	candidates = append(candidates, filepath.Join("/etc/weather-oracle", o.Kind+".toml"))
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errors.New("cmn: no config file found in discovery path")
}

// Load discovers, reads, and decodes the config, layering it on the
// built-in defaults.
func Load(o CLIOverride) (Config, error) {
	cfg := Default()
	path, err := DiscoverPath(o)
	if err != nil {
		glog.Warningf("cmn: %v, using built-in defaults", err)
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cmn: read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("cmn: parse config %s: %w", path, err)
	}
	glog.Infof("cmn: loaded config from %s", path)
	return cfg, nil
}

// Validate checks the fields that must hold before startup proceeds;
// an invalid address or unusable directory aborts with a non-zero exit.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("cmn: invalid port %d", c.Port)
	}
	if c.WeatherDir == "" {
		return errors.New("cmn: weather_dir must be set")
	}
	if c.EventDB == "" {
		return errors.New("cmn: event_db must be set")
	}
	if c.SleepInterval.Duration <= 0 {
		return errors.New("cmn: sleep_interval must be positive")
	}
	if c.TokenCapacity <= 0 || c.RefillRate <= 0 {
		return errors.New("cmn: token_capacity and refill_rate must be positive")
	}
	return nil
}
