package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/llm"
	"github.com/hpungsan/pathfinder/internal/logging"
	"github.com/hpungsan/pathfinder/internal/mcp"
	"github.com/hpungsan/pathfinder/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// commands are the first arguments that select the CLI over MCP mode.
var commands = map[string]bool{
	"serve": true, "mcp": true, "tools": true,
	"realm": true, "add": true, "source": true,
	"synthesize": true, "queue": true, "version": true, "job": true,
	"export": true, "import": true,
	"help": true,
}

type launchMode int

const (
	modeMCP     launchMode = iota // stdio MCP server
	modeCLI                       // a known command
	modeInfo                      // help or version, no database needed
	modeBanner                    // bare invocation from a terminal
	modeUnknown                   // unknown argument from a terminal
)

// detectMode picks how to run from the arguments and whether stdin is a
// terminal. Piped stdin with no recognised command means an MCP client.
func detectMode(args []string, interactive bool) launchMode {
	if len(args) < 2 {
		if interactive {
			return modeBanner
		}
		return modeMCP
	}
	switch arg := args[1]; {
	case arg == "help" || arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v":
		return modeInfo
	case commands[arg]:
		return modeCLI
	case interactive:
		return modeUnknown
	default:
		return modeMCP
	}
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// baseDir returns PATHFINDER_HOME, or ~/.pathfinder when unset.
func baseDir(getenv func(string) string) (string, error) {
	if dir := getenv("PATHFINDER_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pathfinder"), nil
}

const banner = `
   ___       _   _     __ _         _
  | _ \__ _ | |_| |_  / _(_)_ _  __| |___ _ _
  |  _/ _' ||  _| ' \|  _| | ' \/ _' / -_) '_|
  |_| \__,_| \__|_||_|_| |_|_||_\__,_\___|_|

  Personal knowledge base prompt synthesis

  Usage: pathfinder <command> [options]
         pathfinder --help

  MCP server mode requires piped input.`

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	mode := detectMode(args, stdinIsTerminal())
	switch mode {
	case modeBanner:
		fmt.Println(banner)
		return 0
	case modeUnknown:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\nRun 'pathfinder --help' for usage.\n", args[1])
		return 1
	case modeInfo:
		return exitCode(newCLIApp(nil).Run(args))
	}

	env, cleanup, err := setup(context.Background(), os.Getenv)
	if err != nil {
		return exitCode(err)
	}
	defer cleanup()

	if mode == modeCLI {
		return exitCode(newCLIApp(env).Run(args))
	}
	if err := mcp.Run(env, Version); err != nil {
		env.Log.Error("mcp server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// setup opens the database under the base directory, loads config and
// builds the operation environment. cleanup waits for background jobs and
// closes everything setup opened.
func setup(ctx context.Context, getenv func(string) string) (*ops.Env, func(), error) {
	dir, err := baseDir(getenv)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.ExportsDir == "" {
		cfg.ExportsDir = filepath.Join(dir, "exports")
	}

	verbose, _ := strconv.ParseBool(getenv("PATHFINDER_VERBOSE"))
	log, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, nil, err
	}

	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		log.Warn("unknown tool in disabled_tools", zap.String("tool", name))
	}
	for _, name := range mcp.ValidateDisabledTypes(cfg.DisabledTypes) {
		log.Warn("unknown type in disabled_types", zap.String("type", name))
	}

	database, err := db.Init(dir)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	gen, err := llm.New(ctx, cfg)
	if err != nil {
		database.Close()
		_ = log.Sync()
		return nil, nil, fmt.Errorf("failed to initialize model client: %w", err)
	}
	if _, ok := gen.(llm.Unavailable); ok {
		log.Warn("GEMINI_API_KEY is not set; synthesis will use fallbacks and chat is unavailable")
	}

	env := ops.NewEnv(database, cfg, gen, log)
	cleanup := func() {
		env.Close()
		database.Close()
		_ = log.Sync()
	}
	return env, cleanup, nil
}
