package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pkt.systems/pslog"

	"github.com/bnema/atp-accounts-cli/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
