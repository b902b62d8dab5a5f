package main

import (
	"github.com/varity-app/lablr/cmd"
	"github.com/varity-app/lablr/internal/conf"
	"github.com/varity-app/lablr/internal/logging"
)

// version and buildDate are populated at build time via ldflags
var version = "dev"
var buildDate = "unknown"

func main() {
	// Initialize the logging system first so everything below can log
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command error", "error", err)
	}
}
