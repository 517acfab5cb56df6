package main

import (
	"os"

	"github.com/psantana5/grain/cmd/grain/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
