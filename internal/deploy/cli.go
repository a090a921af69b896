package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cosigner/internal/logging"
	"cosigner/internal/program"
	"cosigner/internal/services"
)

// maxOutputLines bounds how much CLI output is echoed into an error.
const maxOutputLines = 8

// Option configures the CLI deployer.
type Option func(*CLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		c.logger = logging.NewComponentLogger(logger, "deploy")
	}
}

// Settings identify the program and the keys used to upgrade it.
type Settings struct {
	Binary               string
	RPCURL               string
	ProgramKeypairPath   string
	UpgradeAuthorityPath string
	Timeout              time.Duration
}

// CLI deploys program artifacts with `solana program deploy`.
type CLI struct {
	settings Settings
	exec     Executor
	logger   *slog.Logger
}

// New constructs a CLI deployer.
func New(settings Settings, opts ...Option) (*CLI, error) {
	settings.Binary = strings.TrimSpace(settings.Binary)
	if settings.Binary == "" {
		return nil, errors.New("solana binary required")
	}
	if strings.TrimSpace(settings.ProgramKeypairPath) == "" {
		return nil, errors.New("program keypair path required")
	}
	if strings.TrimSpace(settings.UpgradeAuthorityPath) == "" {
		return nil, errors.New("upgrade authority keypair path required")
	}
	c := &CLI{
		settings: settings,
		exec:     newCommandExecutor(),
		logger:   logging.NewComponentLogger(nil, "deploy"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Args returns the solana CLI arguments used to deploy artifact.
func (c *CLI) Args(artifact program.Artifact) []string {
	args := []string{
		"program", "deploy", artifact.Path,
		"--program-id", c.settings.ProgramKeypairPath,
		"--upgrade-authority", c.settings.UpgradeAuthorityPath,
	}
	if c.settings.RPCURL != "" {
		args = append(args, "--url", c.settings.RPCURL)
	}
	return args
}

// Deploy implements program.Deployer.
func (c *CLI) Deploy(ctx context.Context, artifact program.Artifact) error {
	if strings.TrimSpace(artifact.Path) == "" {
		return services.Wrap(services.ErrConfiguration, "deploy", string(artifact.Variant), "artifact path is empty", nil)
	}

	runCtx := ctx
	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	var output []string
	onOutput := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		logger.Debug("solana output", logging.String("line", line))
		output = append(output, line)
	}

	started := time.Now()
	err := c.exec.Run(runCtx, c.settings.Binary, c.Args(artifact), onOutput)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		detail := tail(output, maxOutputLines)
		if detail == "" {
			detail = "no output"
		}
		return services.Wrap(marker, "deploy", "solana program deploy", detail, err)
	}

	logger.Info("solana program deploy finished",
		logging.String(logging.FieldVariant, string(artifact.Variant)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("program_id_line", findProgramID(output)),
	)
	return nil
}

func tail(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

func findProgramID(lines []string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, "Program Id:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Program Id:"))
		}
	}
	return ""
}

var _ program.Deployer = (*CLI)(nil)

// Describe renders the command line for logs and preflight output.
func (c *CLI) Describe(artifact program.Artifact) string {
	return fmt.Sprintf("%s %s", c.settings.Binary, strings.Join(c.Args(artifact), " "))
}
