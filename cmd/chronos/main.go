package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/chronos/internal"
	"github.com/starford/chronos/internal/chronos"
	pkgconfig "github.com/starford/chronos/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// withSession opens the vault for a one-shot command, logging to stderr so
// stdout only carries the command's output.
func withSession(cmd *cli.Command, fn func(*internal.Session) error) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	sess, err := internal.Open(append(opts, internal.WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

func timeline(ctx context.Context, cmd *cli.Command) error {
	return withSession(cmd, func(sess *internal.Session) error {
		notes, err := sess.Service.Timeline(ctx, chronos.ParseOrder(cmd.String("order")), int(cmd.Int("limit")))
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, n := range notes {
			fmt.Fprintf(tw, "%s\t%s\n", n.ModTime.Format("2006-01-02 15:04"), n.Path)
		}
		return tw.Flush()
	})
}

func printCandidates(cs []chronos.Candidate) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range cs {
		fmt.Fprintf(tw, "%d\t%s\n", c.Count, c.Note.Path)
	}
	return tw.Flush()
}

func suggest(ctx context.Context, cmd *cli.Command) error {
	note := cmd.Args().First()
	if note == "" {
		return fmt.Errorf("usage: chronos suggest <note>")
	}
	return withSession(cmd, func(sess *internal.Session) error {
		var (
			cs  []chronos.Candidate
			err error
		)
		if cmd.Bool("all") || cmd.String("query") != "" {
			cs, err = sess.Service.Choices(ctx, note, cmd.String("query"))
		} else {
			cs, err = sess.Service.SuggestParents(ctx, note)
		}
		if err != nil {
			return err
		}
		if len(cs) == 0 {
			fmt.Fprintln(os.Stderr, "no parent candidates found")
			return nil
		}
		return printCandidates(cs)
	})
}

func link(ctx context.Context, cmd *cli.Command) error {
	child := cmd.Args().First()
	parents := cmd.StringSlice("parent")
	if child == "" || len(parents) == 0 {
		return fmt.Errorf("usage: chronos link --parent <note> [--parent <note>...] <child>")
	}
	return withSession(cmd, func(sess *internal.Session) error {
		if err := sess.Service.AddParents(ctx, child, parents); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "linked %s under %d parent(s)\n", child, len(parents))
		return nil
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "chronos",
		Usage:  "Timeline and parent (Map of Content) suggestions for a Markdown vault",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, event stream and vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "timeline",
				Usage:  "List notes by modification time",
				Action: timeline,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "order", Value: string(chronos.Newest), Usage: "newest or oldest"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum notes, 0 for all"},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Rank parent candidates for a note",
				ArgsUsage: "<note>",
				Action:    suggest,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Also list every other note with count 0"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by path substring (implies --all)"},
				},
			},
			{
				Name:      "link",
				Usage:     "Record a note as child of one or more parents",
				ArgsUsage: "<child>",
				Action:    link,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent note (repeatable)"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
