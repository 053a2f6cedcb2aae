package main

import (
	"os"

	"github.com/wonny/marketbrief/cmd/marketbrief/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
