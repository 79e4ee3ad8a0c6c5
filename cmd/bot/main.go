package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/smallstreet/megabot/app/bot"
)

func main() {
	// Local development convenience; deployed environments inject real env vars.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := bot.Initialize(ctx)

	serverErr := bot.NewServer(app)
	if serverErr != nil {
		app.Logger.Fatal("Unable to initialize server")
	}

	app.Start(ctx)
}
