package main

import (
	"os"

	"github.com/akshatvasisht/oversite/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
