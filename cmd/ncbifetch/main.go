package main

import (
	"os"

	"github.com/ncbitools/ncbifetch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
