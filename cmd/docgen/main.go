// docgen CLI - renders and validates care-home document templates
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/docgen/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
