package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit(os.Args[2:])
	case "config":
		err = cmdConfig()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "tracks":
		err = cmdTracks()
	case "exercise":
		err = cmdExercise(os.Args[2:])
	case "languages":
		err = cmdLanguages()
	case "submit":
		err = cmdSubmit(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("codeeasy %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`CodeEasy - Exercise grading against remote judges

Usage:
  codeeasy <command> [arguments]

Setup Commands:
  init [path]     Write a default configuration file
  config          Show the effective configuration

Daemon Commands:
  start           Start the CodeEasy daemon
  stop            Stop the CodeEasy daemon
  status          Show daemon status
  logs            View daemon logs

Exercise Commands:
  tracks                                 List tracks
  exercise list <track> [category]       List exercises
  exercise info <track>/<category>/<slug> Show exercise details
  languages                              List judge languages

Submission Commands:
  submit <track>/<slug> <file> [-lang ID] [-category C] [-user U]
  history [-track T] [-exercise E] [-user U] [-limit N]

Integration Commands:
  mcp             Start MCP server on stdio

Other:
  help            Show this help message
  version         Show version information

Environment:
  CODEEASY_URL    Daemon base URL (default derived from server.bind/port)

Examples:
  codeeasy start
  codeeasy exercise list javascript
  codeeasy submit javascript/two-fer two-fer.js`)
}

// daemonURL returns the base URL of the running daemon
func daemonURL() string {
	if u := os.Getenv("CODEEASY_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}

	cfg, err := config.Load("")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	host := cfg.Server.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
}
