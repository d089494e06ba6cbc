// Package config handles loading and validating teire configuration
// from files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// maxWorkers caps the worker pool regardless of CPU count so a large
// workspace cannot exhaust file descriptors or SSH connections.
const maxWorkers = 32

// Config holds all teire configuration.
type Config struct {
	WorkspaceDir    string   `yaml:"workspace_dir"`
	SrcDir          string   `yaml:"src_dir"`        // relative to WorkspaceDir
	Workers         int      `yaml:"workers"`        // parallel worker count
	DefaultBranch   string   `yaml:"default_branch"` // mainline fallback when the remote HEAD symref is absent
	ExcludePatterns []string `yaml:"exclude_patterns"`
	ArtifactDirs    []string `yaml:"artifact_dirs"` // per-package build output dirs under WorkspaceDir
	HookDirs        []string `yaml:"hook_dirs"`
	GithubToken     string   `yaml:"github_token"`
	CheckMergedPRs  bool     `yaml:"check_merged_prs"` // consult GitHub PR state for squash-merged branches
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		SrcDir:          "src",
		Workers:         min(maxWorkers, 2*runtime.NumCPU()),
		ExcludePatterns: []string{".archive"},
		ArtifactDirs:    []string{"build", "install"},
	}
}

// Load reads configuration from the config file and environment
// variables. Values are layered: defaults < config file < environment.
func Load() (Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)

	if cfg.SrcDir == "" || filepath.IsAbs(cfg.SrcDir) {
		return cfg, fmt.Errorf("src_dir must be a relative path, got %q", cfg.SrcDir)
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

// configPath returns the path to the config file.
func configPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "teire", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "teire", "config.yaml")
}

func loadFile(cfg *Config) error {
	path := filepath.Clean(configPath())
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil // no config file is fine
	}
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.WorkspaceDir = ExpandHome(cfg.WorkspaceDir)
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TEIRE_WORKSPACE"); v != "" {
		cfg.WorkspaceDir = ExpandHome(v)
	}
	if v := os.Getenv("TEIRE_SRC_DIR"); v != "" {
		cfg.SrcDir = v
	}
	if v := os.Getenv("TEIRE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("TEIRE_DEFAULT_BRANCH"); v != "" {
		cfg.DefaultBranch = v
	}
	if v := os.Getenv("TEIRE_HOOK_DIRS"); v != "" {
		cfg.HookDirs = nil
		for _, dir := range filepath.SplitList(v) {
			if dir != "" {
				cfg.HookDirs = append(cfg.HookDirs, ExpandHome(dir))
			}
		}
	}
	if v := os.Getenv("TEIRE_GITHUB_TOKEN"); v != "" {
		cfg.GithubToken = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.GithubToken == "" {
		cfg.GithubToken = v
	}
	if v := os.Getenv("GH_TOKEN"); v != "" && cfg.GithubToken == "" {
		cfg.GithubToken = v
	}
	if v := os.Getenv("TEIRE_CHECK_MERGED_PRS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CheckMergedPRs = b
		}
	}
}

// ExpandHome replaces a leading ~/ in path with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
