// Package main запускает subifyctl.
package main

import (
	"os"

	"github.com/magabrotheeeer/subify/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
