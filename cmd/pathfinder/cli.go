package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/jobs"
	"github.com/hpungsan/pathfinder/internal/mcp"
	"github.com/hpungsan/pathfinder/internal/ops"
	"github.com/hpungsan/pathfinder/internal/web"
)

// maxStdinBytes bounds content piped into add.
const maxStdinBytes = 4 << 20

// newCLIApp creates the CLI application with all commands. env may be nil
// when only help or version output is needed.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "pathfinder",
		Usage:   "Synthesize system prompts from a personal knowledge base",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			mcpCmd(env),
			toolsCmd(env),
			realmCmd(env),
			addCmd(env),
			sourceCmd(env),
			synthesizeCmd(env),
			queueCmd(env),
			versionCmd(env),
			jobCmd(env),
			exportCmd(env),
			importCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd runs the HTTP API until interrupted.
func serveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and realm browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config: 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config: 8750)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("bind") {
				env.Config.HTTPBind = c.String("bind")
			}
			if c.IsSet("port") {
				env.Config.HTTPPort = c.Int("port")
			}
			srv, err := web.NewServer(env, Version)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return web.Run(ctx, srv, env.Log)
		},
	}
}

// mcpCmd serves the MCP tools over stdio. Running with no command and
// piped stdin does the same.
func mcpCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(env, Version)
		},
	}
}

// toolsCmd prints the MCP tools left enabled by the config.
func toolsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List enabled MCP tools",
		Action: func(c *cli.Context) error {
			return outputJSON(c, map[string]any{"items": mcp.EnabledTools(env)})
		},
	}
}

// realmCmd groups realm management.
func realmCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "realm",
		Usage: "Manage realms",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a realm",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Realm name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
					&cli.BoolFlag{Name: "no-synthesis", Usage: "Disable automatic synthesis"},
				},
				Action: func(c *cli.Context) error {
					input := ops.CreateRealmInput{
						Name:              c.String("name"),
						SynthesisDisabled: c.Bool("no-synthesis"),
					}
					if c.IsSet("description") {
						d := c.String("description")
						input.Description = &d
					}
					return result(c)(ops.CreateRealm(c.Context, env, input))
				},
			},
			{
				Name:  "list",
				Usage: "List realms, default first",
				Action: func(c *cli.Context) error {
					realms, err := ops.ListRealms(c.Context, env)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"items": realms})
				},
			},
			{
				Name:      "get",
				Usage:     "Show a realm with counts",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.GetRealm(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:      "update",
				Usage:     "Rename, describe or toggle synthesis for a realm",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description (empty clears)"},
					&cli.BoolFlag{Name: "synthesis", Usage: "Enable (--synthesis) or disable (--synthesis=false) automatic synthesis"},
				},
				Action: func(c *cli.Context) error {
					input := ops.UpdateRealmInput{ID: c.Args().First()}
					if c.IsSet("name") {
						n := c.String("name")
						input.Name = &n
					}
					if c.IsSet("description") {
						d := c.String("description")
						input.Description = &d
					}
					if c.IsSet("synthesis") {
						disabled := !c.Bool("synthesis")
						input.SynthesisDisabled = &disabled
					}
					return result(c)(ops.UpdateRealm(c.Context, env, input))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a realm; its sources become unassigned",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.DeleteRealm(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:      "map",
				Usage:     "Show the realm's content map",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.ContentMap(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:      "analyze",
				Usage:     "Analyze the realm's content as a whole",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.AnalyzeRealm(c.Context, env, c.Args().First()))
				},
			},
		},
	}
}

// addCmd stores a content source and reports the synthesis decision.
func addCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a content source (reads content from stdin unless --content is given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Realm ID (omit for an unassigned source)"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Source content"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "text", Usage: "Source type"},
			&cli.StringFlag{Name: "title", Usage: "Title"},
			&cli.Float64Flag{Name: "weight", Aliases: []string{"w"}, Value: 1, Usage: "Weight in [0, 5]"},
			&cli.BoolFlag{Name: "no-synthesize", Usage: "Store without consulting the trigger policy"},
		},
		Action: func(c *cli.Context) error {
			text := c.String("content")
			if !c.IsSet("content") {
				if !stdinHasData(c.App.Reader) {
					return outputError(errors.NewInvalidRequest("content must be piped via stdin or given with --content"))
				}
				var err error
				text, err = readStdin(c.App.Reader, maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			}

			weight := c.Float64("weight")
			autoSynthesize := !c.Bool("no-synthesize")
			input := ops.AddSourceInput{
				RealmID:        optionalString(c, "realm"),
				SourceType:     c.String("type"),
				Title:          optionalString(c, "title"),
				Content:        text,
				Weight:         &weight,
				AutoSynthesize: &autoSynthesize,
			}
			return result(c)(ops.AddSource(c.Context, env, input))
		},
	}
}

// sourceCmd groups source queries and maintenance.
func sourceCmd(env *ops.Env) *cli.Command {
	selectorFlags := []cli.Flag{
		&cli.StringFlag{Name: "ids", Usage: "Comma-separated source IDs"},
		&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Filter by realm"},
		&cli.BoolFlag{Name: "unassigned", Usage: "Only sources without a realm"},
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by source type"},
	}
	selector := func(c *cli.Context) ops.SourceSelector {
		return ops.SourceSelector{
			IDs:        parseIDs(c.String("ids")),
			RealmID:    optionalString(c, "realm"),
			Unassigned: c.Bool("unassigned"),
			SourceType: optionalString(c, "type"),
		}
	}

	return &cli.Command{
		Name:  "source",
		Usage: "Query and maintain content sources",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show a source",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.GetSource(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List source summaries, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Filter by realm"},
					&cli.BoolFlag{Name: "unassigned", Usage: "Only sources without a realm"},
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by source type"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					return result(c)(ops.ListSources(c.Context, env, ops.ListSourcesInput{
						RealmID:    optionalString(c, "realm"),
						Unassigned: c.Bool("unassigned"),
						SourceType: optionalString(c, "type"),
						Limit:      c.Int("limit"),
						Offset:     c.Int("offset"),
					}))
				},
			},
			{
				Name:      "search",
				Usage:     "Search source titles and content",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Filter by realm"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
				},
				Action: func(c *cli.Context) error {
					return result(c)(ops.SearchSources(c.Context, env, ops.SearchInput{
						Query:   strings.Join(c.Args().Slice(), " "),
						RealmID: optionalString(c, "realm"),
						Limit:   c.Int("limit"),
					}))
				},
			},
			{
				Name:      "weight",
				Usage:     "Change a source's weight",
				ArgsUsage: "<id> <weight>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: source weight <id> <weight>"))
					}
					weight, err := strconv.ParseFloat(c.Args().Get(1), 64)
					if err != nil {
						return outputError(errors.NewInvalidRequest("weight must be a number"))
					}
					return result(c)(ops.UpdateWeight(c.Context, env, c.Args().First(), weight))
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a source and its queue entries",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.DeleteSource(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:      "insights",
				Usage:     "Extract insights from a source",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.ExtractInsights(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:  "bulk-update",
				Usage: "Move or reweight every source matching the filters",
				Flags: append(selectorFlags[:len(selectorFlags):len(selectorFlags)],
					&cli.StringFlag{Name: "set-realm", Usage: "Target realm ID (empty unassigns)"},
					&cli.Float64Flag{Name: "set-weight", Usage: "New weight"},
				),
				Action: func(c *cli.Context) error {
					input := ops.BulkUpdateInput{Select: selector(c)}
					if c.IsSet("set-realm") {
						r := c.String("set-realm")
						input.SetRealmID = &r
					}
					if c.IsSet("set-weight") {
						w := c.Float64("set-weight")
						input.SetWeight = &w
					}
					return result(c)(ops.BulkUpdate(c.Context, env, input))
				},
			},
			{
				Name:  "bulk-delete",
				Usage: "Delete every source matching the filters",
				Flags: selectorFlags,
				Action: func(c *cli.Context) error {
					return result(c)(ops.BulkDelete(c.Context, env, selector(c)))
				},
			},
		},
	}
}

// synthesizeCmd runs the full pipeline in the foreground.
func synthesizeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "synthesize",
		Usage:     "Run a full synthesis for a realm and wait for it",
		ArgsUsage: "<realm-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sources", Usage: "Comma-separated source IDs (default: every source in the realm)"},
		},
		Action: func(c *cli.Context) error {
			return result(c)(ops.ForceFullSynthesis(c.Context, env, ops.ForceFullSynthesisInput{
				RealmID:          c.Args().First(),
				ContentSourceIDs: parseIDs(c.String("sources")),
			}))
		},
	}
}

// queueCmd groups batch queue maintenance.
func queueCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Drain or purge the batch queue",
		Subcommands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Drain one realm's queue, or every realm's when no ID is given",
				ArgsUsage: "[realm-id]",
				Action: func(c *cli.Context) error {
					if c.NArg() > 0 {
						return result(c)(ops.ProcessBatchQueue(c.Context, env, c.Args().First()))
					}
					return result(c)(ops.ProcessAllQueues(c.Context, env))
				},
			},
			{
				Name:  "purge",
				Usage: "Delete processed queue entries",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "older-than", Usage: "Only purge entries processed more than N days ago (e.g., 7d)"},
				},
				Action: func(c *cli.Context) error {
					input := ops.PurgeInput{}
					if olderThan := c.String("older-than"); olderThan != "" {
						days, err := parseDuration(olderThan)
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.OlderThanDays = &days
					}
					return result(c)(ops.PurgeQueue(c.Context, env, input))
				},
			},
		},
	}
}

// versionCmd groups prompt version history.
func versionCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Inspect prompt versions",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a realm's versions, newest first",
				ArgsUsage: "<realm-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum items to return"},
				},
				Action: func(c *cli.Context) error {
					return result(c)(ops.ListVersions(c.Context, env, ops.ListVersionsInput{
						RealmID: c.Args().First(),
						Limit:   c.Int("limit"),
					}))
				},
			},
			{
				Name:      "get",
				Usage:     "Show a version",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.GetVersion(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:      "assess",
				Usage:     "Score a version's prompt",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.AssessVersion(c.Context, env, c.Args().First()))
				},
			},
		},
	}
}

// jobCmd groups background synthesis jobs. A job started here only lives as
// long as the process, so start is mostly useful with --wait.
func jobCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "job",
		Usage: "Start and inspect synthesis jobs",
		Subcommands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Start a synthesis job",
				ArgsUsage: "<realm-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "full", Usage: "full|incremental|quality_improvement"},
					&cli.StringFlag{Name: "sources", Usage: "Comma-separated source IDs"},
					&cli.BoolFlag{Name: "wait", Usage: "Wait for the job to finish"},
				},
				Action: func(c *cli.Context) error {
					out, err := ops.StartJob(c.Context, env, jobs.StartInput{
						RealmID:          c.Args().First(),
						SynthesisType:    c.String("type"),
						ContentSourceIDs: parseIDs(c.String("sources")),
					})
					if err != nil {
						return outputError(err)
					}
					if !c.Bool("wait") {
						return outputJSON(c, out)
					}
					env.Jobs.Wait()
					return result(c)(ops.GetJob(c.Context, env, out.ID))
				},
			},
			{
				Name:      "get",
				Usage:     "Show a job",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.GetJob(c.Context, env, c.Args().First()))
				},
			},
			{
				Name:  "list",
				Usage: "List jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Filter by realm"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
				},
				Action: func(c *cli.Context) error {
					return result(c)(ops.ListJobs(c.Context, env, ops.ListJobsInput{
						RealmID: optionalString(c, "realm"),
						Limit:   c.Int("limit"),
					}))
				},
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a pending or running job",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					return result(c)(ops.CancelJob(c.Context, env, c.Args().First()))
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export sources to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <exports dir>/<realm>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Only export this realm"},
		},
		Action: func(c *cli.Context) error {
			return result(c)(ops.Export(c.Context, env, ops.ExportInput{
				Path:    c.String("path"),
				RealmID: optionalString(c, "realm"),
			}))
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import sources from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
			&cli.StringFlag{Name: "realm", Aliases: []string{"r"}, Usage: "Assign every imported source to this realm"},
		},
		Action: func(c *cli.Context) error {
			return result(c)(ops.Import(c.Context, env, ops.ImportInput{
				Path:    c.String("path"),
				Mode:    ops.ImportMode(c.String("mode")),
				RealmID: optionalString(c, "realm"),
			}))
		},
	}
}

// Helper functions

// result returns a function that prints an operation's output or error.
// It lets an action end with `return result(c)(ops.X(...))`.
func result(c *cli.Context) func(any, error) error {
	return func(v any, err error) error {
		if err != nil {
			return outputError(err)
		}
		return outputJSON(c, v)
	}
}

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	pErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
}

// optionalString returns the flag's value when it was given, nil otherwise.
func optionalString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// stdinHasData returns true if r is piped data rather than a terminal.
func stdinHasData(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from r.
func readStdin(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseIDs splits a comma-separated string into a slice of IDs.
func parseIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
