package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/five82/manavault/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/manavault/config.toml)")
	envFile := flag.String("env", "", "dotenv file to load (optional, defaults to ./.env)")
	apiURL := flag.String("api", "", "marketplace API base URL (optional)")
	cachePath := flag.String("cache", "", "cache database path, or :memory: (optional)")
	refreshSeconds := flag.Int("refresh", 0, "storefront refresh interval in seconds (optional, defaults to 30s)")
	flag.Parse()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "manavault: stdout is not a terminal")
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:   *configPath,
		EnvFile:      *envFile,
		APIURL:       *apiURL,
		CachePath:    *cachePath,
		RefreshEvery: *refreshSeconds,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "manavault: %v\n", err)
		return 1
	}
	return 0
}
