package main

import (
	"os"

	"github.com/veilhq/veil/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
