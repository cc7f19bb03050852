package main

import (
	"os"

	"github.com/akeren/caregiver-waitlist/config"
	"github.com/akeren/caregiver-waitlist/internal/log"
)

func main() {
	// stdout carries command output; logs go to stderr.
	logger := log.NewLoggerWithWriter(os.Stderr)

	config.InitializeEnvFile(logger)

	if err := newRootCommand(logger, openConfiguredStorage(logger)).Execute(); err != nil {
		os.Exit(1)
	}
}
