package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kush-Singh-26/isoserve/internal/server"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			args = args[1:]
		case "help":
			printUsage()
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: isoserve [serve] [flags]")
	fmt.Println("\nServes ./dist on http://localhost:3000 with cross-origin isolation headers.")
	fmt.Println("\nFlags:")
	fmt.Println("  -root <dir>     Directory to serve (default dist)")
	fmt.Println("  -host <addr>    Host/IP to bind (default all interfaces)")
	fmt.Println("  -port <n>       Port to listen on (default 3000)")
	fmt.Println("  -config <file>  YAML config file (default ./isoserve.yaml if present)")
	fmt.Println("  -compress       Gzip compressible responses")
	fmt.Println("  -watch          Push reload events on " + server.EventsPath)
	fmt.Println("  -no-list        Disable directory listings")
	fmt.Println("  -quiet          Disable the access log")
}
