package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/permissioning-deployer/artifacts"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm"
	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider"
	"github.com/smartcontractkit/permissioning-deployer/config"
	"github.com/smartcontractkit/permissioning-deployer/deployment"
	"github.com/smartcontractkit/permissioning-deployer/exporter"
	"github.com/smartcontractkit/permissioning-deployer/operations"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// Run deploys the permissions graph on the chain of chainProvider and exports the permission
// config. The step report is written to output.report_path, when set, whether or not the
// deployment succeeds. Nothing is exported unless every contract is deployed and linked.
func Run(
	ctx context.Context, cfg *config.Config, chainProvider provider.ChainProvider, lggr logger.Logger,
) (exporter.PermissionConfig, error) {
	chain, err := chainProvider.Initialize(ctx)
	if err != nil {
		return exporter.PermissionConfig{}, fmt.Errorf("failed to initialize %s: %w", chainProvider.Name(), err)
	}
	if c, ok := chain.Client.(interface{ Close() }); ok {
		defer c.Close()
	}

	defaults, err := cfg.DispatchDefaults()
	if err != nil {
		return exporter.PermissionConfig{}, err
	}

	dispatcher, err := evm.NewDispatcher(chain, lggr, defaults)
	if err != nil {
		return exporter.PermissionConfig{}, err
	}

	reporter := operations.NewMemoryReporter()
	orchestrator := deployment.NewOrchestrator(
		dispatcher, artifacts.NewDirResolver(cfg.Artifacts.Dir), reporter, lggr,
	)

	result, err := orchestrator.Run(ctx, deployment.PermissionsGraph())
	if cfg.Output.ReportPath != "" {
		if werr := reporter.WriteFile(cfg.Output.ReportPath); werr != nil {
			err = errors.Join(err, fmt.Errorf("failed to write report: %w", werr))
		} else {
			lggr.Infof("Report written to file: %s", cfg.Output.ReportPath)
		}
	}
	if err != nil {
		return exporter.PermissionConfig{}, err
	}

	sink := exporter.NewFileSink(cfg.Output.Path, lggr)
	exported, err := exporter.Export(ctx, sink, result, dispatcher.Account().Address, exporter.DefaultPolicy())
	if err != nil {
		return exporter.PermissionConfig{}, err
	}

	lggr.Infow("Deployment complete", "runID", result.RunID, "contracts", result.Len(), "config", sink.Path())

	return exported, nil
}
