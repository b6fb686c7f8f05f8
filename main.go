package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/song163bot/song163bot/bot/app"
)

var (
	versionName = ""
	commitSHA   = ""
)

func main() {
	configPath := flag.String("c", "config.ini", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, *configPath, app.BuildInfo{
		Version:   versionName,
		CommitSHA: commitSHA,
	})
	if err != nil {
		panic(err)
	}

	if err := application.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()
	_ = application.Shutdown(context.Background())
}
