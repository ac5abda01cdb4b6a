// cmd/weeklyad/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/cli"
	"github.com/law-makers/weeklyad/internal/ui"
)

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx)
	if ctx.Err() != nil {
		log.Warn().Msg("Interrupted, shut down gracefully")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
