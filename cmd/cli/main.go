package main

import (
	"os"

	"github.com/dvloznov/statement-analyzer/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
