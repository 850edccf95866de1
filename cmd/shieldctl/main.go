// Package main is the entry point for the shieldctl binary.
package main

import (
	"os"

	"datashield/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
