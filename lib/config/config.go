// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Vaultline.
type Config struct {
	// Vault configures the git repository that holds the markdown vault.
	Vault VaultConfig `yaml:"vault"`

	// Commit configures the bot's git identity and commit messages.
	Commit CommitConfig `yaml:"commit"`

	// Webhook configures the webhook receiver service.
	Webhook WebhookConfig `yaml:"webhook"`

	// Time configures timestamp rendering.
	Time TimeConfig `yaml:"time"`

	// Sync configures the commit-and-push retry policy.
	Sync SyncConfig `yaml:"sync"`

	// Checkout configures working copy materialization.
	Checkout CheckoutConfig `yaml:"checkout"`
}

// VaultConfig locates the vault repository.
type VaultConfig struct {
	// RemoteURL is the https clone URL of the vault repository, without
	// credentials. The credential from CredentialFile is injected at
	// clone time and never written to configuration or logs.
	RemoteURL string `yaml:"remote_url"`

	// CredentialFile is the path of a file holding the access token for
	// RemoteURL. Empty means the system git credential machinery is
	// trusted to authenticate (useful for local mirrors and tests).
	CredentialFile string `yaml:"credential_file"`

	// Branch is the branch entries are committed to. Empty means the
	// remote's default branch.
	Branch string `yaml:"branch"`

	// RoutesFile is the path of the JSONC route table. Empty selects
	// the built-in diary route for all events.
	RoutesFile string `yaml:"routes_file"`
}

// CommitConfig is the bot's authoring identity.
type CommitConfig struct {
	// AuthorName and AuthorEmail become the working copy's git
	// user.name and user.email.
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`

	// MessagePrefix is the leading word of every commit message, e.g.
	// "LINE 2025-06-25 14:30".
	MessagePrefix string `yaml:"message_prefix"`
}

// WebhookConfig configures the HTTP receiver.
type WebhookConfig struct {
	// Listen is the address the webhook server binds, e.g. ":8080".
	Listen string `yaml:"listen"`

	// SecretFile is the path of a file holding the channel secret used
	// to verify webhook signatures.
	SecretFile string `yaml:"secret_file"`

	// ReplaySnapshot is the path of the replay guard's snapshot file.
	// Empty disables snapshot persistence; redelivery suppression then
	// starts cold on every restart.
	ReplaySnapshot string `yaml:"replay_snapshot"`
}

// TimeConfig selects the zone entries are stamped in.
type TimeConfig struct {
	// Zone is an IANA zone name, e.g. "Asia/Tokyo". All dates and
	// times in the vault are rendered in this zone regardless of where
	// the service runs.
	Zone string `yaml:"zone"`
}

// SyncConfig is the push retry policy. Durations are strings in
// time.ParseDuration syntax ("1s", "500ms").
type SyncConfig struct {
	// MaxAttempts is how many times a push is tried before the event
	// fails. Minimum 1.
	MaxAttempts int `yaml:"max_attempts"`

	// JitterMin and JitterMax bound the random delay inserted before
	// the first git interaction of each event, spreading out bursts of
	// near-simultaneous deliveries.
	JitterMin string `yaml:"jitter_min"`
	JitterMax string `yaml:"jitter_max"`

	// Backoff is the base delay between push attempts; attempt n waits
	// n times this value.
	Backoff string `yaml:"backoff"`
}

// CheckoutConfig configures working copy materialization.
type CheckoutConfig struct {
	// WorkRoot is the directory working copies are created under. Each
	// event gets its own subdirectory, removed after the event is
	// synced.
	WorkRoot string `yaml:"work_root"`

	// Depth is the clone depth. 1 fetches only the branch tip, which
	// is all the merge needs.
	Depth int `yaml:"depth"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback - the
// config file is required for anything that touches a real vault.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "vaultline")

	return &Config{
		Vault: VaultConfig{
			Branch: "main",
		},
		Commit: CommitConfig{
			AuthorName:    "LINE Bot",
			AuthorEmail:   "line-bot@localhost",
			MessagePrefix: "LINE",
		},
		Webhook: WebhookConfig{
			Listen: ":8080",
		},
		Time: TimeConfig{
			Zone: "Asia/Tokyo",
		},
		Sync: SyncConfig{
			MaxAttempts: 3,
			JitterMin:   "1s",
			JitterMax:   "3s",
			Backoff:     "1s",
		},
		Checkout: CheckoutConfig{
			WorkRoot: filepath.Join(defaultRoot, "checkouts"),
			Depth:    1,
		},
	}
}

// Resolve loads configuration from path when non-empty, otherwise via
// the VAULTLINE_CONFIG environment variable, and validates the result.
// This is the entry point binaries use; Load and LoadFile skip
// validation so callers can assemble partial configurations.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = LoadFile(path)
	} else {
		cfg, err = Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load loads configuration from the VAULTLINE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if VAULTLINE_CONFIG is not set,
// this fails. This ensures deterministic, auditable configuration with
// no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("VAULTLINE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("VAULTLINE_CONFIG environment variable not set; " +
			"set it to the path of your vaultline.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values; the only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Vault.CredentialFile = expandVars(c.Vault.CredentialFile, vars)
	c.Vault.RoutesFile = expandVars(c.Vault.RoutesFile, vars)
	c.Webhook.SecretFile = expandVars(c.Webhook.SecretFile, vars)
	c.Webhook.ReplaySnapshot = expandVars(c.Webhook.ReplaySnapshot, vars)
	c.Checkout.WorkRoot = expandVars(c.Checkout.WorkRoot, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported in one joined error.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.RemoteURL == "" {
		errs = append(errs, fmt.Errorf("vault.remote_url is required"))
	} else if parsed, err := url.Parse(c.Vault.RemoteURL); err != nil {
		errs = append(errs, fmt.Errorf("vault.remote_url: %w", err))
	} else if parsed.Scheme != "https" && parsed.Scheme != "http" && parsed.Scheme != "file" {
		errs = append(errs, fmt.Errorf("vault.remote_url: scheme %q not supported (https, http, or file)", parsed.Scheme))
	}

	if c.Commit.AuthorName == "" {
		errs = append(errs, fmt.Errorf("commit.author_name is required"))
	}
	if c.Commit.AuthorEmail == "" {
		errs = append(errs, fmt.Errorf("commit.author_email is required"))
	}
	if c.Commit.MessagePrefix == "" {
		errs = append(errs, fmt.Errorf("commit.message_prefix is required"))
	}

	if c.Webhook.Listen == "" {
		errs = append(errs, fmt.Errorf("webhook.listen is required"))
	}

	if c.Time.Zone == "" {
		errs = append(errs, fmt.Errorf("time.zone is required"))
	} else if _, err := time.LoadLocation(c.Time.Zone); err != nil {
		errs = append(errs, fmt.Errorf("time.zone: %w", err))
	}

	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("sync.max_attempts must be at least 1, got %d", c.Sync.MaxAttempts))
	}
	jitterMin, err := time.ParseDuration(c.Sync.JitterMin)
	if err != nil {
		errs = append(errs, fmt.Errorf("sync.jitter_min: %w", err))
	}
	jitterMax, err := time.ParseDuration(c.Sync.JitterMax)
	if err != nil {
		errs = append(errs, fmt.Errorf("sync.jitter_max: %w", err))
	}
	if jitterMin > 0 && jitterMax > 0 && jitterMin > jitterMax {
		errs = append(errs, fmt.Errorf("sync.jitter_min %s exceeds sync.jitter_max %s", c.Sync.JitterMin, c.Sync.JitterMax))
	}
	if backoff, err := time.ParseDuration(c.Sync.Backoff); err != nil {
		errs = append(errs, fmt.Errorf("sync.backoff: %w", err))
	} else if backoff < 0 {
		errs = append(errs, fmt.Errorf("sync.backoff must not be negative, got %s", c.Sync.Backoff))
	}

	if c.Checkout.WorkRoot == "" {
		errs = append(errs, fmt.Errorf("checkout.work_root is required"))
	}
	if c.Checkout.Depth < 1 {
		errs = append(errs, fmt.Errorf("checkout.depth must be at least 1, got %d", c.Checkout.Depth))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured state directories if they don't
// exist: the checkout work root and the replay snapshot's parent.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Checkout.WorkRoot}
	if c.Webhook.ReplaySnapshot != "" {
		paths = append(paths, filepath.Dir(c.Webhook.ReplaySnapshot))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

// ReadSecret reads a credential or webhook secret from path and trims
// surrounding whitespace. An empty file is an error.
func ReadSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
