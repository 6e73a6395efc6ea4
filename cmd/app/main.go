package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/rpgify/internal"
	"github.com/starford/rpgify/internal/questservice"
	"github.com/starford/rpgify/internal/views"
	pkgconfig "github.com/starford/rpgify/pkg/config"
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
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

func status(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	// stdout carries the dashboard.
	opts = append(opts, internal.WithLogOutput(os.Stderr))

	d, err := internal.Status(ctx, opts...)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	fmt.Println(views.RenderDashboard(d))
	return nil
}

func newNote(noteType string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		opts = append(opts, internal.WithLogOutput(os.Stderr))

		in := questservice.CreateQuestInput{
			Type:       noteType,
			Title:      strings.Join(cmd.Args().Slice(), " "),
			Path:       cmd.String("path"),
			Class:      cmd.String("class"),
			CompleteBy: cmd.String("complete-by"),
			Tasks:      cmd.StringSlice("task"),
		}
		if cmd.IsSet("exp") {
			exp := cmd.Float("exp")
			in.Exp = &exp
		}

		d, err := internal.NewQuest(ctx, in, opts...)
		if err != nil {
			return fmt.Errorf("create %s: %w", strings.ToLower(noteType), err)
		}
		fmt.Println(d.Path)
		return nil
	}
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func noteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "class", Usage: "Class the experience counts toward"},
		&cli.FloatFlag{Name: "exp", Usage: "Experience awarded on completion"},
		&cli.StringFlag{Name: "complete-by", Usage: "Due date, YYYY-MM-DD"},
		&cli.StringFlag{Name: "path", Usage: "Explicit vault-relative path ending in .md"},
		&cli.StringSliceFlag{Name: "task", Aliases: []string{"t"}, Usage: "Task line (repeatable)"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "rpgify",
		Usage:   "Track quests, achievements and class levels in a Markdown vault",
		Version: version,
		Action:  serve,
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
				Usage:  "Run the HTTP API, file watcher and background renders",
				Action: serve,
			},
			{
				Name:   "status",
				Usage:  "Render the dashboard once and print it",
				Action: status,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print the dashboard as JSON"},
				},
			},
			{
				Name:  "new",
				Usage: "Create a note from a template",
				Commands: []*cli.Command{
					{
						Name:      "quest",
						Usage:     "Create a quest",
						ArgsUsage: "<title>",
						Flags:     noteFlags(),
						Action:    newNote("Quest"),
					},
					{
						Name:      "achievement",
						Usage:     "Create an achievement",
						ArgsUsage: "<title>",
						Flags:     noteFlags(),
						Action:    newNote("Achievement"),
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
