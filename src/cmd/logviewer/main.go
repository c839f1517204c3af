// Command logviewer follows the JSON log files written by inkboard and prints
// them in a compact, colored form.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func printHelp() {
	fmt.Println("Usage: logviewer [options] [log directory]")
	fmt.Println("\nOptions:")
	flag.PrintDefaults()
	fmt.Println("\nDescription:")
	fmt.Println("  Prints the entries of all *.log files in the directory (default: ./logs/)")
	fmt.Println("  and follows them as they grow. Press Ctrl-C to exit.")
}

func main() {
	var (
		help    bool
		filter  string
		level   string
		noColor bool
	)
	flag.StringVar(&filter, "f", "", "only show entries containing this text")
	flag.StringVar(&level, "l", "debug", "minimum level: debug, info, warn or error")
	flag.BoolVar(&noColor, "no-color", false, "disable colors")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = printHelp
	flag.Parse()

	if help {
		printHelp()
		return
	}

	logDir := "./logs/"
	if flag.NArg() > 0 {
		logDir = flag.Arg(0)
	}

	viewer, err := NewViewer(logDir, filter, level, !noColor, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring logs in directory: %s\n", logDir)
	if err := viewer.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nExiting...")
}
