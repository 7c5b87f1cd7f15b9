package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/bravo68web/gitkit/internal/config"
	"github.com/bravo68web/gitkit/internal/infrastructure/telemetry"
	"github.com/bravo68web/gitkit/pkg/git"
	"github.com/bravo68web/gitkit/pkg/logger"
	"github.com/bravo68web/gitkit/pkg/process"
)

// CommandRegistry builds the command tree and carries the configuration and
// logger loaded before any subcommand runs
type CommandRegistry struct {
	cfg *config.Config
	log *logger.Logger
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

func (r *CommandRegistry) RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:                  "gitkit",
		Usage:                 "Inspect git repositories through the git binary",
		Suggest:               true,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				Sources: cli.EnvVars("GITKIT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"C"},
				Usage:   "Repository to inspect",
				Value:   ".",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Kill git invocations running longer than this (0 keeps the configured value)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Before: r.before,
		After:  r.after,
		Action: RootCommand(),
		Commands: []*cli.Command{
			r.CatFileCommand(),
			r.LsTreeCommand(),
			r.LogCommand(),
			r.RefsCommand(),
			r.DiffCommand(),
			r.TreeCommitsCommand(),
			r.ServeCommand(),
			r.OpenAPICommand(),
		},
	}
}

func RootCommand() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return cli.ShowRootCommandHelp(cmd)
	}
}

func (r *CommandRegistry) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if d := cmd.Duration("timeout"); d > 0 {
		cfg.Git.Timeout = d
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	log, err := telemetry.NewLogger(ctx, cfg.Logging, cfg.Telemetry, cmd.Root().ErrWriter)
	if err != nil {
		return ctx, err
	}
	logger.SetGlobal(log)

	r.cfg = cfg
	r.log = log
	return ctx, nil
}

func (r *CommandRegistry) after(ctx context.Context, cmd *cli.Command) error {
	if r.log == nil {
		return nil
	}
	return r.log.Close()
}

// openRepo opens the repository named by --repo with the configured git
// settings
func (r *CommandRegistry) openRepo(cmd *cli.Command) (*git.Repository, error) {
	return git.Open(cmd.String("repo"),
		git.WithBinary(r.cfg.Git.Binary),
		git.WithTimeout(r.cfg.Git.Timeout),
		git.WithEnv(r.cfg.Git.Environment()),
		git.WithMaxConcurrency(r.cfg.Pool.MaxConcurrency),
		git.WithRunner(process.NewRunner(process.WithLogger(r.log.Named("process")))),
		git.WithLogger(r.log),
	)
}

func out(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(out(cmd))
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// argOr returns positional argument n, or def when absent
func argOr(cmd *cli.Command, n int, def string) string {
	if v := cmd.Args().Get(n); v != "" {
		return v
	}
	return def
}
