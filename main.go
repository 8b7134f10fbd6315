package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/roofsolar/cmd"
	"github.com/tphakala/roofsolar/internal/app"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	appCtx := app.NewContext(version)
	rootCmd := cmd.RootCommand(appCtx)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if shutdownErr := appCtx.Shutdown(); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", shutdownErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
