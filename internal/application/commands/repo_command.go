package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/bravo68web/gitkit/internal/application/dto"
	apperrors "github.com/bravo68web/gitkit/pkg/errors"
	"github.com/bravo68web/gitkit/pkg/git"
)

func (r *CommandRegistry) CatFileCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat-file",
		Usage:     "Print a parsed commit or tag as JSON",
		ArgsUsage: "commit|tag <rev>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return cli.Exit("usage: cat-file commit|tag <rev>", 2)
			}
			repo, err := r.openRepo(cmd)
			if err != nil {
				return err
			}

			rev := cmd.Args().Get(1)
			switch cmd.Args().First() {
			case "commit":
				c, err := repo.CatFileCommit(ctx, rev)
				if err != nil {
					return err
				}
				return printJSON(cmd, dto.FromCommit(c))
			case "tag":
				t, err := repo.Tag(ctx, rev)
				if err != nil {
					return err
				}
				return printJSON(cmd, dto.FromTag(t))
			default:
				return cli.Exit("object type must be commit or tag", 2)
			}
		},
	}
}

func (r *CommandRegistry) LsTreeCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls-tree",
		Usage:     "List a directory of a revision",
		ArgsUsage: "<rev> [path]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := r.openRepo(cmd)
			if err != nil {
				return err
			}
			commit, err := repo.CatFileCommit(ctx, argOr(cmd, 0, "HEAD"))
			if err != nil {
				return err
			}
			tree, err := commit.Tree().Subtree(ctx, cmd.Args().Get(1))
			if err != nil {
				return err
			}
			entries, err := tree.Entries(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out(cmd), "%06o %s %s\t%s\n", int(e.Mode()), e.Kind(), e.ID(), e.Name())
			}
			return nil
		},
	}
}

func (r *CommandRegistry) LogCommand() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "List the history of a revision",
		ArgsUsage: "<rev>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Only commits touching this path"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of commits", Value: 30},
			&cli.IntFlag{Name: "skip", Usage: "Skip this many commits first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Int("limit") < 1 || cmd.Int("skip") < 0 {
				return apperrors.ValidationError("limit", "limit must be positive and skip not negative")
			}
			repo, err := r.openRepo(cmd)
			if err != nil {
				return err
			}
			commits, err := repo.Log(ctx, argOr(cmd, 0, "HEAD"), git.LogOptions{
				MaxCount: cmd.Int("limit"),
				Skip:     cmd.Int("skip"),
				Path:     cmd.String("path"),
			})
			if err != nil {
				return err
			}
			for _, c := range commits {
				fmt.Fprintf(out(cmd), "%s %s\n", c.ID.Short(), c.Summary())
			}
			return nil
		},
	}
}

func (r *CommandRegistry) RefsCommand() *cli.Command {
	list := func(name, usage string, fetch func(*git.Repository, context.Context) ([]string, error)) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(ctx context.Context, cmd *cli.Command) error {
				repo, err := r.openRepo(cmd)
				if err != nil {
					return err
				}
				names, err := fetch(repo, ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(out(cmd), n)
				}
				return nil
			},
		}
	}

	return &cli.Command{
		Name:  "refs",
		Usage: "List branches or tags",
		Commands: []*cli.Command{
			list("branches", "List branch names", (*git.Repository).Branches),
			list("tags", "List tag names", (*git.Repository).Tags),
		},
	}
}

func (r *CommandRegistry) DiffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show the changes introduced by a revision",
		ArgsUsage: "<rev>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Usage: "Compare against this revision instead of the parent"},
			&cli.IntFlag{Name: "max-files", Usage: "Stop after this many files (0 for no limit)", Value: -1},
			&cli.IntFlag{Name: "max-file-lines", Usage: "Truncate files after this many lines (0 for no limit)", Value: -1},
			&cli.IntFlag{Name: "max-line-chars", Usage: "Truncate longer lines (0 for no limit)", Value: -1},
			&cli.BoolFlag{Name: "raw", Usage: "Print the unparsed diff"},
			&cli.BoolFlag{Name: "patch", Usage: "Print the commit as an email patch"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := r.openRepo(cmd)
			if err != nil {
				return err
			}
			rev := argOr(cmd, 0, "HEAD")

			switch {
			case cmd.Bool("patch"):
				return repo.RawDiff(ctx, rev, git.RawDiffPatch, out(cmd))
			case cmd.Bool("raw"):
				return repo.RawDiff(ctx, rev, git.RawDiffNormal, out(cmd))
			}

			opts := git.DiffOptions{
				Base:         cmd.String("base"),
				MaxFiles:     r.cfg.Diff.MaxFiles,
				MaxFileLines: r.cfg.Diff.MaxFileLines,
				MaxLineChars: r.cfg.Diff.MaxLineChars,
			}
			// -1 keeps the configured limit
			for flag, target := range map[string]*int{
				"max-files":      &opts.MaxFiles,
				"max-file-lines": &opts.MaxFileLines,
				"max-line-chars": &opts.MaxLineChars,
			} {
				if v := cmd.Int(flag); v >= 0 {
					*target = v
				}
			}

			d, err := repo.Diff(ctx, rev, opts)
			if err != nil {
				return err
			}
			w := out(cmd)
			for _, f := range d.Files {
				name := f.Name
				if f.IsRenamed() {
					name = f.OldName + " => " + f.Name
				}
				switch {
				case f.IsBinary():
					fmt.Fprintf(w, "%-8s %-11s %s\n", f.Type, "binary", name)
				default:
					fmt.Fprintf(w, "%-8s +%-4d -%-4d %s\n", f.Type, f.NumAdditions(), f.NumDeletions(), name)
				}
			}
			fmt.Fprintf(w, "%d files changed, %d insertions(+), %d deletions(-)\n",
				d.NumFiles(), d.TotalAdditions(), d.TotalDeletions())
			if d.IsIncomplete() {
				fmt.Fprintln(w, "diff truncated")
			}
			return nil
		},
	}
}

func (r *CommandRegistry) TreeCommitsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree-commits",
		Usage:     "Show the last commit touching each entry of a directory",
		ArgsUsage: "<rev> [path]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Usage: "Parallel history lookups (0 uses the configured pool)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := r.openRepo(cmd)
			if err != nil {
				return err
			}
			commit, err := repo.CatFileCommit(ctx, argOr(cmd, 0, "HEAD"))
			if err != nil {
				return err
			}
			infos, err := commit.CommitsInfo(ctx, git.CommitsInfoOptions{
				Path:           cmd.Args().Get(1),
				MaxConcurrency: cmd.Int("concurrency"),
			})
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(out(cmd), "%-24s %s %s\n", info.Entry.Name(), info.Commit.ID.Short(), info.Commit.Summary())
			}
			return nil
		},
	}
}
