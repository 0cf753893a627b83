package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Network.ConnectTimeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Network.ConnectTimeout)
	}
	if cfg.Network.MaxFrameBytes != 65535 {
		t.Errorf("expected max frame bytes 65535, got %d", cfg.Network.MaxFrameBytes)
	}
	if !cfg.Network.NoDelay {
		t.Error("expected no_delay to be true by default")
	}

	if cfg.Session.ConnectAttempts != 3 {
		t.Errorf("expected connect attempts 3, got %d", cfg.Session.ConnectAttempts)
	}
	if cfg.Session.WaitBetweenMillis != 2000 {
		t.Errorf("expected wait_between_attempts_ms 2000, got %d", cfg.Session.WaitBetweenMillis)
	}

	if cfg.Discovery.ClassName != "TCPIPUserManager" {
		t.Errorf("expected class name TCPIPUserManager, got %s", cfg.Discovery.ClassName)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
network:
  connect_timeout: 5s
  max_frame_bytes: 4096
  no_delay: false

session:
  connect_attempts: 5
  wait_between_attempts_ms: 500

discovery:
  game_name: "arena"
  class_name: "CustomUserManager"

logging:
  level: "debug"
  log_file: "client.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Network.ConnectTimeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Network.ConnectTimeout)
	}
	if cfg.Network.MaxFrameBytes != 4096 {
		t.Errorf("expected max frame bytes 4096, got %d", cfg.Network.MaxFrameBytes)
	}
	if cfg.Network.NoDelay {
		t.Error("expected no_delay to be false")
	}

	if cfg.Session.ConnectAttempts != 5 {
		t.Errorf("expected connect attempts 5, got %d", cfg.Session.ConnectAttempts)
	}

	if cfg.Discovery.GameName != "arena" {
		t.Errorf("expected game name 'arena', got %s", cfg.Discovery.GameName)
	}
	if cfg.Discovery.ClassName != "CustomUserManager" {
		t.Errorf("expected class name CustomUserManager, got %s", cfg.Discovery.ClassName)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "client.log" {
		t.Errorf("expected log file 'client.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
network:
  max_frame_bytes: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("network:\n  max_frame_bytes: 8192\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "game flag",
			setup: func() {
				*flagGame = "arena"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Discovery.GameName != "arena" {
					t.Errorf("expected game name 'arena', got %s", cfg.Discovery.GameName)
				}
			},
			teardown: func() {
				*flagGame = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
discovery:
  game_name: "from-file"
session:
  connect_attempts: 9
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagGame = "from-flag"
	defer func() {
		*flagConfig = ""
		*flagGame = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Game name should be from flag, not file.
	if cfg.Discovery.GameName != "from-flag" {
		t.Errorf("expected game name 'from-flag', got %s", cfg.Discovery.GameName)
	}

	// ConnectAttempts should be from file since no flag overrides it.
	if cfg.Session.ConnectAttempts != 9 {
		t.Errorf("expected connect attempts 9 from file, got %d", cfg.Session.ConnectAttempts)
	}
}
