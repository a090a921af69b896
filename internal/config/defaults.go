package config

const (
	defaultConfigPath           = "~/.config/cosigner/config.toml"
	defaultStateDir             = "~/.local/share/cosigner"
	defaultAPIBind              = "127.0.0.1:3001"
	defaultRPCURL               = "https://api.devnet.solana.com"
	defaultCommitment           = "confirmed"
	defaultConfirmTimeout       = 60
	defaultPollIntervalMillis   = 500
	defaultSolanaBinary         = "solana"
	defaultInertArtifact        = "~/.local/share/cosigner/programs/dummy.so"
	defaultActiveArtifact       = "~/.local/share/cosigner/programs/transfer.so"
	defaultDeployTimeoutSeconds = 300
	defaultSettleSeconds        = 5
	defaultTickIntervalSeconds  = 5
	defaultSubmitDelayMillis    = 1000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		Ledger: Ledger{
			RPCURL:                defaultRPCURL,
			Commitment:            defaultCommitment,
			ConfirmTimeoutSeconds: defaultConfirmTimeout,
			PollIntervalMillis:    defaultPollIntervalMillis,
		},
		Program: Program{
			InertArtifact:        defaultInertArtifact,
			ActiveArtifact:       defaultActiveArtifact,
			SolanaBinary:         defaultSolanaBinary,
			DeployTimeoutSeconds: defaultDeployTimeoutSeconds,
			SettleSeconds:        defaultSettleSeconds,
		},
		Scheduler: Scheduler{
			TickIntervalSeconds: defaultTickIntervalSeconds,
			SubmitDelayMillis:   defaultSubmitDelayMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunStarted:     false,
			RunCompleted:   true,
			Errors:         true,
		},
	}
}
