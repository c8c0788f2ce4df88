package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/signica/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "signica: %v\n", err)
		os.Exit(1)
	}
}
