package main

import (
	"fmt"
	"os"
	"strings"

	"polymarket-trader/internal/cli"
	"polymarket-trader/internal/config"
	"polymarket-trader/internal/logging"
)

func main() {
	cfg, err := config.Load(configDir(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDir pre-scans the arguments for --config before cobra parses
// them. The config has to be loaded before the command tree is built,
// so the flag cannot wait for cobra.
func configDir(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}
