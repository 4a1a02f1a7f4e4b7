package main

import (
	"github.com/spf13/cobra"
)

// Set at build time:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "company",
	Short: "Company and employee directory service",
	Long: `company serves a REST API for managing companies and their employees.
State is held in process memory (or an in-memory SQLite database) and is lost
on restart; every change can be published to Kafka.`,
	SilenceUsage: true,
}
