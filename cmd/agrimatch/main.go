package main

import (
	"os"

	"github.com/agrimatch/agrimatch/cmd/agrimatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
