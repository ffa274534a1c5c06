// Package main provides the entry point for the saesagent CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/saesagent/cmd/saesagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
