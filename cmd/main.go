package main

import (
	"fmt"
	"os"

	"github.com/corey-beep/email-agent/internal/cli"
	"github.com/corey-beep/email-agent/internal/config"
	"github.com/corey-beep/email-agent/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		LogFile: cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cli.Execute(cfg, log); err != nil {
		os.Exit(1)
	}
}
