// Package main is the entry point for the featherbox binary.
package main

import (
	"os"

	"github.com/featherbox/featherbox/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
