package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLedger()
	if err := c.normalizeProgram(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeLedger() {
	c.Ledger.RPCURL = strings.TrimSpace(c.Ledger.RPCURL)
	if value, ok := os.LookupEnv("COSIGNER_RPC_URL"); ok && strings.TrimSpace(value) != "" {
		c.Ledger.RPCURL = strings.TrimSpace(value)
	}
	if c.Ledger.RPCURL == "" {
		c.Ledger.RPCURL = defaultRPCURL
	}
	c.Ledger.Commitment = strings.ToLower(strings.TrimSpace(c.Ledger.Commitment))
	if c.Ledger.Commitment == "" {
		c.Ledger.Commitment = defaultCommitment
	}
	c.Ledger.CosignerKey = strings.TrimSpace(c.Ledger.CosignerKey)
	if c.Ledger.CosignerKey == "" {
		if value, ok := os.LookupEnv("COSIGNER_PRIVATE_KEY"); ok {
			c.Ledger.CosignerKey = strings.TrimSpace(value)
		}
	}
	if c.Ledger.ConfirmTimeoutSeconds <= 0 {
		c.Ledger.ConfirmTimeoutSeconds = defaultConfirmTimeout
	}
	if c.Ledger.PollIntervalMillis <= 0 {
		c.Ledger.PollIntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeProgram() error {
	var err error
	c.Program.ProgramID = strings.TrimSpace(c.Program.ProgramID)
	if strings.TrimSpace(c.Program.SolanaBinary) == "" {
		c.Program.SolanaBinary = defaultSolanaBinary
	}
	c.Program.SolanaBinary = strings.TrimSpace(c.Program.SolanaBinary)
	if strings.TrimSpace(c.Program.InertArtifact) == "" {
		c.Program.InertArtifact = defaultInertArtifact
	}
	if strings.TrimSpace(c.Program.ActiveArtifact) == "" {
		c.Program.ActiveArtifact = defaultActiveArtifact
	}
	if c.Program.InertArtifact, err = expandPath(strings.TrimSpace(c.Program.InertArtifact)); err != nil {
		return fmt.Errorf("program.inert_artifact: %w", err)
	}
	if c.Program.ActiveArtifact, err = expandPath(strings.TrimSpace(c.Program.ActiveArtifact)); err != nil {
		return fmt.Errorf("program.active_artifact: %w", err)
	}
	if c.Program.ProgramKeypairPath, err = expandPath(strings.TrimSpace(c.Program.ProgramKeypairPath)); err != nil {
		return fmt.Errorf("program.program_keypair_path: %w", err)
	}
	if c.Program.UpgradeAuthorityKeypairPath, err = expandPath(strings.TrimSpace(c.Program.UpgradeAuthorityKeypairPath)); err != nil {
		return fmt.Errorf("program.upgrade_authority_keypair_path: %w", err)
	}
	if c.Ledger.CosignerKeypairPath, err = expandPath(strings.TrimSpace(c.Ledger.CosignerKeypairPath)); err != nil {
		return fmt.Errorf("ledger.cosigner_keypair_path: %w", err)
	}
	if c.Program.DeployTimeoutSeconds <= 0 {
		c.Program.DeployTimeoutSeconds = defaultDeployTimeoutSeconds
	}
	if c.Program.SettleSeconds < 0 {
		c.Program.SettleSeconds = 0
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.TickIntervalSeconds <= 0 {
		c.Scheduler.TickIntervalSeconds = defaultTickIntervalSeconds
	}
	if c.Scheduler.SubmitDelayMillis < 0 {
		c.Scheduler.SubmitDelayMillis = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
