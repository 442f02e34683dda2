package cmn

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weatherd.toml")
	body := `
host = "0.0.0.0"
port = 9000
sleep_interval = "30m"
refill_rate = 2.5
token_capacity = 4
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(CLIOverride{ConfigPath: path, Kind: "weatherd"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9000 {
		t.Fatalf("file layer not applied: %+v", cfg)
	}
	if cfg.SleepInterval.Duration != 30*time.Minute {
		t.Fatalf("sleep_interval = %v, want 30m", cfg.SleepInterval.Duration)
	}
	// Fields absent from the file keep their defaults.
	if cfg.WeatherDir != Default().WeatherDir || cfg.UserAgent != Default().UserAgent {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestDiscoverPathPrecedence(t *testing.T) {
	explicit := "/tmp/explicit.toml"
	got, err := DiscoverPath(CLIOverride{ConfigPath: explicit, Kind: "weatherd"})
	if err != nil || got != explicit {
		t.Fatalf("CLI flag must win: got %q err %v", got, err)
	}

	t.Setenv("WEATHERD_CONFIG", "/tmp/from-env.toml")
	got, err = DiscoverPath(CLIOverride{Kind: "weatherd"})
	if err != nil || got != "/tmp/from-env.toml" {
		t.Fatalf("env var must win over file discovery: got %q err %v", got, err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	bad := cfg
	bad.Port = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid port to fail")
	}

	bad = cfg
	bad.SleepInterval = Duration{}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero sleep_interval to fail")
	}

	bad = cfg
	bad.TokenCapacity = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected zero token_capacity to fail")
	}
}
