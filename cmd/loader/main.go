package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/canopy-network/salesdw/app/loader"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := loader.Initialize(ctx)

	app.Start(ctx)
}
