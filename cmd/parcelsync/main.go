// Command parcelsync keeps delivery spreadsheets and local courier state in
// step, queueing status changes while offline.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/parcelsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(version)
	_ = logger.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
