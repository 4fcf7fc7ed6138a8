package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"heist/server/internal/app"
	"heist/server/internal/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Logger: log.Default(), Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
