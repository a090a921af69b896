package preflight

import (
	"context"
	"errors"
	"strings"

	"cosigner/internal/config"
	"cosigner/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// HealthChecker checks that the ledger endpoint answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RunAll executes every preflight check for the given config. health may be
// nil, in which case the RPC check is skipped.
func RunAll(ctx context.Context, cfg *config.Config, health HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFileReadable("Inert artifact", cfg.Program.InertArtifact))
	results = append(results, CheckFileReadable("Active artifact", cfg.Program.ActiveArtifact))
	results = append(results, CheckFileReadable("Program keypair", cfg.Program.ProgramKeypairPath))
	results = append(results, CheckFileReadable("Upgrade authority keypair", cfg.Program.UpgradeAuthorityKeypairPath))
	if strings.TrimSpace(cfg.Ledger.CosignerKey) == "" {
		results = append(results, CheckFileReadable("Cosigner keypair", cfg.Ledger.CosignerKeypairPath))
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if result.Passed && result.Detail == "" {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	if health != nil {
		results = append(results, CheckRPC(ctx, cfg.Ledger.RPCURL, health))
	}
	return results
}

// RequireArtifacts fails when either program artifact cannot be read.
func RequireArtifacts(cfg *config.Config) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "artifacts", "configuration unavailable", nil)
	}
	var errs []error
	for _, check := range []Result{
		CheckFileReadable("inert artifact", cfg.Program.InertArtifact),
		CheckFileReadable("active artifact", cfg.Program.ActiveArtifact),
	} {
		if !check.Passed {
			errs = append(errs, errors.New(check.Name+": "+check.Detail))
		}
	}
	if len(errs) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "artifacts", "program artifacts missing", errors.Join(errs...))
	}
	return nil
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
