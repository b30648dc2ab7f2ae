// Package main is the entry point for the citypulse service.
package main

import (
	"os"

	"citypulse/cmd/citypulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
