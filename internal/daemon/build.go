package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/config"
	"cosigner/internal/deploy"
	"cosigner/internal/ledger"
	"cosigner/internal/notifications"
	"cosigner/internal/preflight"
	"cosigner/internal/program"
	"cosigner/internal/queue"
	"cosigner/internal/relay"
	"cosigner/internal/scheduler"
	"cosigner/internal/services"
)

// Build assembles the production component set from configuration and
// returns a daemon ready to Start. It refuses to build when program
// artifacts are missing or key material cannot be loaded.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.ValidateSigning(); err != nil {
		return nil, err
	}
	if err := preflight.RequireArtifacts(cfg); err != nil {
		return nil, err
	}

	signer, err := ledger.LoadSigner(cfg.Ledger.CosignerKey, cfg.Ledger.CosignerKeypairPath)
	if err != nil {
		return nil, err
	}
	authority, err := publicKeyFromKeypair(cfg.Program.UpgradeAuthorityKeypairPath)
	if err != nil {
		return nil, fmt.Errorf("%w: upgrade authority: %v", services.ErrConfiguration, err)
	}
	programID := strings.TrimSpace(cfg.Program.ProgramID)
	if programID == "" {
		programID, err = publicKeyFromKeypair(cfg.Program.ProgramKeypairPath)
		if err != nil {
			return nil, fmt.Errorf("%w: program keypair: %v", services.ErrConfiguration, err)
		}
	}

	client, err := ledger.Dial(cfg.Ledger.RPCURL, cfg.Ledger.Commitment,
		ledger.WithPollInterval(cfg.PollInterval()),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	deployer, err := deploy.New(deploy.Settings{
		Binary:               cfg.Program.SolanaBinary,
		RPCURL:               cfg.Ledger.RPCURL,
		ProgramKeypairPath:   cfg.Program.ProgramKeypairPath,
		UpgradeAuthorityPath: cfg.Program.UpgradeAuthorityKeypairPath,
		Timeout:              cfg.DeployTimeout(),
	}, deploy.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrConfiguration, err)
	}

	controller := program.NewController(deployer, map[program.Variant]string{
		program.Inert:  cfg.Program.InertArtifact,
		program.Active: cfg.Program.ActiveArtifact,
	}, program.WithSettleInterval(cfg.SettleInterval()), program.WithLogger(logger))
	pipeline := relay.NewPipeline(signer, client,
		relay.WithConfirmTimeout(cfg.ConfirmTimeout()),
		relay.WithLogger(logger),
	)

	store, err := queue.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	sched := scheduler.New(store, controller, pipeline,
		scheduler.WithTickInterval(cfg.TickInterval()),
		scheduler.WithNotifier(notifications.NewService(cfg)),
		scheduler.WithLogger(logger),
	)

	d, err := New(cfg, logger, Components{
		Store:            store,
		Controller:       controller,
		Scheduler:        sched,
		CosignerAddress:  signer.PublicKey().String(),
		UpgradeAuthority: authority,
		ProgramID:        programID,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}

func publicKeyFromKeypair(path string) (string, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return "", err
	}
	return key.PublicKey().String(), nil
}
