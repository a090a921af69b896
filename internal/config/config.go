package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	APIBind  string `toml:"api_bind"`
}

// Ledger contains the RPC endpoint, confirmation policy, and cosigner key.
type Ledger struct {
	RPCURL                string `toml:"rpc_url"`
	Commitment            string `toml:"commitment"`
	ConfirmTimeoutSeconds int    `toml:"confirm_timeout_seconds"`
	PollIntervalMillis    int    `toml:"poll_interval_ms"`
	// CosignerKey is a base58 encoded 64-byte secret key. Takes precedence
	// over CosignerKeypairPath when both are set.
	CosignerKey         string `toml:"cosigner_key"`
	CosignerKeypairPath string `toml:"cosigner_keypair_path"`
}

// Program contains the on-chain program identity and the two deployable variants.
type Program struct {
	ProgramID                   string `toml:"program_id"`
	ProgramKeypairPath          string `toml:"program_keypair_path"`
	UpgradeAuthorityKeypairPath string `toml:"upgrade_authority_keypair_path"`
	InertArtifact               string `toml:"inert_artifact"`
	ActiveArtifact              string `toml:"active_artifact"`
	SolanaBinary                string `toml:"solana_binary"`
	DeployTimeoutSeconds        int    `toml:"deploy_timeout_seconds"`
	SettleSeconds               int    `toml:"settle_seconds"`
}

// Scheduler contains batch run timing.
type Scheduler struct {
	TickIntervalSeconds int `toml:"tick_interval_seconds"`
	SubmitDelayMillis   int `toml:"submit_delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for the cosigner daemon.
//
// Configuration sections by subsystem:
//   - Paths: state directory and API bind address
//   - Ledger: RPC endpoint, commitment level, cosigner key
//   - Program: program id, keypairs, inert/active artifacts, deploy timing
//   - Scheduler: tick interval and post-submission trigger delay
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ledger        Ledger        `toml:"ledger"`
	Program       Program       `toml:"program"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cosigner.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "cosignerd.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "cosigner.log")
}

// ConfirmTimeout returns the per-item confirmation wait budget.
func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Ledger.ConfirmTimeoutSeconds) * time.Second
}

// PollInterval returns the signature status polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Ledger.PollIntervalMillis) * time.Millisecond
}

// DeployTimeout returns the upper bound for a single program deployment.
func (c *Config) DeployTimeout() time.Duration {
	return time.Duration(c.Program.DeployTimeoutSeconds) * time.Second
}

// SettleInterval returns how long the controller waits after a successful deployment.
func (c *Config) SettleInterval() time.Duration {
	return time.Duration(c.Program.SettleSeconds) * time.Second
}

// TickInterval returns the periodic scheduler interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickIntervalSeconds) * time.Second
}

// SubmitDelay returns the delay between a submission and its immediate run trigger.
func (c *Config) SubmitDelay() time.Duration {
	return time.Duration(c.Scheduler.SubmitDelayMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
