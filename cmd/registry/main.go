package main

import (
	"fmt"
	"os"

	"fraternitybase/registry/internal/registrycli"
)

func main() {
	app := registrycli.GetApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
