package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

type LogCmd struct {
	flags *Flags

	// flags
	pipeline string
	stage    string
	job      string
}

// NewLogCmd creates a new log command
func NewLogCmd(flags *Flags) *LogCmd {
	return &LogCmd{flags: flags}
}

// Register adds the log command to the application
func (cmd *LogCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "log",
		Usage:     "Query logs of pipelines, stages or jobs",
		UsageText: "cicd log [--pipeline NAME [--stage NAME [--job NAME]]]",
		Description: `Narrows the query from every pipeline down to a single job.

--stage requires --pipeline and --job requires both.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pipeline",
				Usage:       "pipeline to query",
				Destination: &cmd.pipeline,
			},
			&cli.StringFlag{
				Name:        "stage",
				Usage:       "stage to query",
				Destination: &cmd.stage,
			},
			&cli.StringFlag{
				Name:        "job",
				Usage:       "job to query",
				Destination: &cmd.job,
			},
		},
		Action: cmd.run,
	})

	return root
}

func (cmd *LogCmd) run(ctx context.Context, c *cli.Command) error {
	switch {
	case cmd.job != "" && (cmd.pipeline == "" || cmd.stage == ""):
		return usagef("--job requires --pipeline and --stage.")
	case cmd.stage != "" && cmd.pipeline == "":
		return usagef("--stage requires --pipeline.")
	}

	_, p := withPrinter(ctx, c)
	switch {
	case cmd.job != "":
		p.Printf("Shows logs for job %s in pipeline %s, stage %s.", cmd.job, cmd.pipeline, cmd.stage)
	case cmd.stage != "":
		p.Printf("Shows all logs for the jobs in pipeline %s, stage %s.", cmd.pipeline, cmd.stage)
	case cmd.pipeline != "":
		p.Printf("Shows all logs for the jobs and stages in pipeline %s.", cmd.pipeline)
	default:
		p.Printf("Shows all logs for every pipeline")
	}
	return nil
}
