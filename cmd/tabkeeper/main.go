package main

import (
	"fmt"
	"os"

	"github.com/harun/tabkeeper/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "E: %v\n", err)
		os.Exit(1)
	}
}
