// Package main is the entry point for devdash, a terminal developer
// dashboard with live system metrics and catalog tool installs.
package main

import (
	"github.com/Guliveer/devdash/internal/cli"
)

// Version info set via ldflags at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123 -X main.date=2026-01-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	cli.SetEmbeddedConfig(embeddedConfig)
	cli.Execute()
}
