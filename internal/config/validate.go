package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateProgram(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLedger() error {
	parsed, err := url.Parse(c.Ledger.RPCURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("ledger.rpc_url must be an absolute URL, got %q", c.Ledger.RPCURL)
	}
	switch c.Ledger.Commitment {
	case "confirmed", "finalized":
	case "processed":
		return errors.New("ledger.commitment must be stronger than processed (use confirmed or finalized)")
	default:
		return fmt.Errorf("ledger.commitment: unsupported value %q", c.Ledger.Commitment)
	}
	return nil
}

func (c *Config) validateProgram() error {
	if c.Program.InertArtifact == c.Program.ActiveArtifact {
		return errors.New("program.inert_artifact and program.active_artifact must point to different files")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// ValidateSigning ensures the daemon has everything it needs to sign and deploy.
// The CLI skips this so read-only commands work without key material.
func (c *Config) ValidateSigning() error {
	if c.Ledger.CosignerKey == "" && c.Ledger.CosignerKeypairPath == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("ledger.cosigner_key is required. Set COSIGNER_PRIVATE_KEY env var or edit %s (create with 'cosigner config init')", defaultPath)
	}
	if strings.TrimSpace(c.Program.ProgramKeypairPath) == "" {
		return errors.New("program.program_keypair_path must be set")
	}
	if strings.TrimSpace(c.Program.UpgradeAuthorityKeypairPath) == "" {
		return errors.New("program.upgrade_authority_keypair_path must be set")
	}
	return nil
}
