package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != "1" {
		t.Errorf("Version = %s, want 1", cfg.Version)
	}
	if cfg.Defaults.Become != false {
		t.Errorf("Defaults.Become = %v, want false", cfg.Defaults.Become)
	}
	if cfg.Defaults.BecomeUser != "root" {
		t.Errorf("Defaults.BecomeUser = %s, want root", cfg.Defaults.BecomeUser)
	}
	if cfg.Defaults.CheckMode != false {
		t.Errorf("Defaults.CheckMode = %v, want false", cfg.Defaults.CheckMode)
	}
	if cfg.Logging.Level != LogLevelInfo {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Diff.Color != true {
		t.Errorf("Diff.Color = %v, want true", cfg.Diff.Color)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
version = "2"

[defaults]
become = true
become_user = "deploy"
check_mode = true

[logging]
level = "debug"
format = "json"
file = "custom.log"

[diff]
enabled = true
color = false
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != "2" {
		t.Errorf("Version = %s, want 2", cfg.Version)
	}
	if cfg.Defaults.Become != true {
		t.Errorf("Defaults.Become = %v, want true", cfg.Defaults.Become)
	}
	if cfg.Defaults.BecomeUser != "deploy" {
		t.Errorf("Defaults.BecomeUser = %s, want deploy", cfg.Defaults.BecomeUser)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != LogFormatJSON {
		t.Errorf("Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if !cfg.Diff.Enabled {
		t.Errorf("Diff.Enabled = %v, want true", cfg.Diff.Enabled)
	}
	if cfg.Diff.Color {
		t.Errorf("Diff.Color = %v, want false", cfg.Diff.Color)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load should not fail for non-existent file: %v", err)
	}

	if cfg.Version != "1" {
		t.Errorf("Should return defaults, got version = %s", cfg.Version)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `invalid = [toml content`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid TOML")
	}
}

func TestLoad_ReadError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if err == nil {
		t.Error("Load should fail when trying to read a directory")
	}
}

func TestLoadFromDir(t *testing.T) {
	t.Run("project-local config", func(t *testing.T) {
		dir := t.TempDir()
		rashDir := filepath.Join(dir, ".rash")
		if err := os.MkdirAll(rashDir, 0755); err != nil {
			t.Fatalf("Failed to create .rash dir: %v", err)
		}

		configPath := filepath.Join(rashDir, "config.toml")
		content := `version = "project-local"`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("LoadFromDir failed: %v", err)
		}

		if cfg.Version != "project-local" {
			t.Errorf("Version = %s, want project-local", cfg.Version)
		}
	})

	t.Run("no config file - uses defaults", func(t *testing.T) {
		dir := t.TempDir()

		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("LoadFromDir failed: %v", err)
		}

		if cfg.Version != "1" {
			t.Errorf("Version = %s, want 1 (default)", cfg.Version)
		}
	})

	t.Run("invalid project config", func(t *testing.T) {
		dir := t.TempDir()
		rashDir := filepath.Join(dir, ".rash")
		if err := os.MkdirAll(rashDir, 0755); err != nil {
			t.Fatalf("Failed to create .rash dir: %v", err)
		}

		configPath := filepath.Join(rashDir, "config.toml")
		content := `invalid = [toml`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		_, err := LoadFromDir(dir)
		if err == nil {
			t.Error("LoadFromDir should fail with invalid TOML")
		}
	})

	t.Run("user global config", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("Cannot get user home directory")
		}

		userConfigDir := filepath.Join(home, ".rash")
		userConfigPath := filepath.Join(userConfigDir, "config.toml")

		if _, err := os.Stat(userConfigPath); err == nil {
			t.Skip("User global config already exists, skipping to avoid modification")
		}

		if err := os.MkdirAll(userConfigDir, 0755); err != nil {
			t.Fatalf("Failed to create user config dir: %v", err)
		}
		defer os.RemoveAll(userConfigDir)

		content := `version = "user-global"`
		if err := os.WriteFile(userConfigPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write user config: %v", err)
		}

		dir := t.TempDir()
		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("LoadFromDir failed: %v", err)
		}

		if cfg.Version != "user-global" {
			t.Errorf("Version = %s, want user-global", cfg.Version)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			cfg:     Default(),
			wantErr: false,
		},
		{
			name:    "missing version",
			cfg:     &Config{},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			cfg: &Config{
				Version: "1",
				Logging: LoggingConfig{Level: "verbose"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
