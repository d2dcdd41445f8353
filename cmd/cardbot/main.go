// cardbot - Adaptive Cards demo bot
//
// Greets new members, replies to messages with an adaptive card and answers
// task module fetches.

package main

import (
	"fmt"
	"os"

	"cardbot/pkg/config"
	"cardbot/pkg/logger"
)

const version = "0.1.0"
const logo = "🃏"

var globalConfigPathOverride string

func main() {
	globalConfigPathOverride = detectConfigPathFromArgs(os.Args)

	for _, arg := range os.Args {
		if arg == "--debug" || arg == "-d" {
			config.SetDebugMode(true)
			logger.SetLevel(logger.DEBUG)
			break
		}
	}

	os.Args = normalizeCLIArgs(os.Args)

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "gateway":
		gatewayCmd()
	case "console":
		consoleCmd()
	case "card":
		cardCmd()
	case "config":
		configCmd()
	case "status":
		statusCmd()
	case "version", "--version", "-v":
		fmt.Printf("%s cardbot v%s\n", logo, version)
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}
