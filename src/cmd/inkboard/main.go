// Package main is the entry point for the Inkboard application.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	configPath := flag.String("config", "", "path of the JSON or TOML configuration file")
	flag.Parse()

	if err := bootstrap(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
