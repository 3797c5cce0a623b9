package main

import (
	"os"

	"github.com/centraunit/orbit/cmd/orbit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
