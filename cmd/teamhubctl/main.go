// Package main is the entry point for the teamhub operations CLI.
package main

import (
	"os"

	"github.com/dalemusser/teamhub/cmd/teamhubctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
