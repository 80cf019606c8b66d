package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/app"
	"github.com/t3-cicd/cicd/internal/request"
)

type RunCmd struct {
	flags *Flags
	app   *app.App

	// flags
	commit    string
	dryRun    bool
	overrides []string
	file      string
	pipeline  string
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, application *app.App) *RunCmd {
	return &RunCmd{flags: flags, app: application}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run a pipeline on the pipeline server",
		UsageText: "cicd run [--commit SHA] [--dry-run] [--override k=v[,k=v]]... [--file PATH | --pipeline NAME]",
		Description: `Checks the configured repository, publishes local work to the staging
repository when the repo is local, and asks the server to start the pipeline.

Without --file or --pipeline the default config file is used.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "commit",
				Usage:       "commit hash to run",
				Destination: &cmd.commit,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "simulate the run without executing any jobs",
				Destination: &cmd.dryRun,
			},
			&cli.StringSliceFlag{
				Name:        "override",
				Usage:       "config values to override as key=value, comma separated or repeated",
				Destination: &cmd.overrides,
			},
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path of the config file from the project root",
				Destination: &cmd.file,
			},
			&cli.StringFlag{
				Name:        "pipeline",
				Usage:       "name of the pipeline to run",
				Destination: &cmd.pipeline,
			},
		},
		Action: cmd.run,
	})

	return root
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, _ = withPrinter(ctx, c)

	in := request.RunInput{
		File:      cmd.file,
		Pipeline:  cmd.pipeline,
		Commit:    cmd.commit,
		Overrides: cmd.overrides,
	}

	if err := request.CheckSelectors(in); err != nil {
		return usageExit(err)
	}

	store, err := cmd.flags.Store(ctx)
	if err != nil {
		return err
	}

	return usageExit(cmd.app.RunPipeline(ctx, store.Current(), in, cmd.dryRun))
}
