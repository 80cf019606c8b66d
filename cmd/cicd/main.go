package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/app"
	"github.com/t3-cicd/cicd/internal/commands"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		cicdApp   = &app.App{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "cicd",
		Usage:     "Trigger and inspect CI/CD pipeline runs",
		UsageText: "cicd [global options] command [command options]",
		Description: `cicd checks your repository locally and asks the pipeline server to run or
validate its pipeline configuration.

Configure the repository and server once with 'cicd config set', then use
'cicd run' or 'cicd validate'.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, disabled)",
				Sources:     cli.EnvVars("CICD_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars("CICD_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "settings",
				Usage:       "path to the settings file",
				Sources:     cli.EnvVars("CICD_SETTINGS"),
				Value:       commands.DefaultSettingsPath(),
				Destination: &flags.SettingsPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := app.NewLogger(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer
			ctx = logger.WithContext(ctx)

			cfg, err := app.LoadConfig()
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return ctx, fmt.Errorf("create app: %w", err)
			}

			// Populate the pre-allocated App (commands already hold a pointer to it)
			*cicdApp = *a

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	root = commands.NewConfigCmd(flags).Register(root)
	root = commands.NewRunCmd(flags, cicdApp).Register(root)
	root = commands.NewValidateCmd(flags, cicdApp).Register(root)
	root = commands.NewInfoCmd(flags).Register(root)
	root = commands.NewLogCmd(flags).Register(root)
	root = commands.NewJobCmd(flags).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1

		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
	}

	os.Exit(exitCode)
}
