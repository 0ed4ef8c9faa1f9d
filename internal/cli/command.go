// Package cli provides the permissions-deployer command.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	deployShort = "Deploy the permissioning contracts and write the permission config"

	deployLong = longDesc(`
		Deploys PermissionsUpgradable, the five managers, PermissionsInterface and
		PermissionsImplementation from the compiled artifacts, calls
		PermissionsUpgradable.init with the interface and implementation addresses, then writes
		the permission config read by the nodes.

		Settings are read from the environment (DEPLOYER_* or the RPC_URL, ACCOUNT_PRIVATE_KEY and
		NETWORK_ID names) and from the optional file named by DEPLOYER_CONFIG_FILE.
	`)

	deployExample = examples(`
		# Deploy to a local node with the artifacts in ./build
		RPC_URL=http://localhost:8545 NETWORK_ID=10 ACCOUNT_PRIVATE_KEY=0x... DEPLOYER_ARTIFACTS_DIR=./build permissions-deployer

		# Deploy with a config file and keep the step report
		DEPLOYER_CONFIG_FILE=deployer.yaml DEPLOYER_OUTPUT_REPORT_PATH=report.json permissions-deployer
	`)
)

// NewCommand creates the root command. It takes no flags or arguments.
func NewCommand(deps Deps) *cobra.Command {
	deps.applyDefaults()

	return &cobra.Command{
		Use:          "permissions-deployer",
		Short:        deployShort,
		Long:         deployLong,
		Example:      deployExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, deps)
		},
	}
}

// runDeploy loads the configuration and runs the deployment.
func runDeploy(cmd *cobra.Command, deps Deps) error {
	cfg, err := deps.ConfigLoader()
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	lggr, err := deps.Logger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lggr.Sync() }()

	chainProvider, err := deps.ChainProvider(cfg, lggr)
	if err != nil {
		return err
	}

	if _, err = Run(cmd.Context(), cfg, chainProvider, lggr); err != nil {
		lggr.Errorw("Deployment failed", "error", err)

		return err
	}

	return nil
}
