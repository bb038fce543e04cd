// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/renamer-cli/cmd"
)

// main is the entry point for the renamer CLI. The command tree runs under
// a signal-aware context so an interrupt aborts the browser workflow
// cleanly instead of orphaning the provisioned profile.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
