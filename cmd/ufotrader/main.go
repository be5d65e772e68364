package main

import (
	"os"

	"ufotrader/cmd/ufotrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
