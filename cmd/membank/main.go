package main

import (
	"os"

	"github.com/membank-oss/membank/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
