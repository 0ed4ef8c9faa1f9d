// Command permissions-deployer deploys the permissioning contracts and writes the permission
// config.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartcontractkit/permissioning-deployer/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewCommand(cli.Deps{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
