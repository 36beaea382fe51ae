package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/salesdw/app/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := scheduler.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	// Start cron scheduler
	app.StartCron()

	// Setup server
	app.SetupServer()

	// Start server
	app.Start(ctx)
}
