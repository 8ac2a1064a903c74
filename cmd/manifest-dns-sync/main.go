package main

import (
	"github.com/opsfolk/manifest-dns-sync/internal/cli"
	"github.com/opsfolk/manifest-dns-sync/internal/logger"
)

func main() {
	// Default until the config file's log settings take over.
	logger.Configure("info", "prod")
	cli.Execute()
}
