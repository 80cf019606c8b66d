package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/request"
)

type JobCmd struct {
	flags *Flags

	// rerun flags
	rerunJob  string
	overrides []string

	// stop flags
	stopStage string
	stopJob   string
}

// NewJobCmd creates a new job command
func NewJobCmd(flags *Flags) *JobCmd {
	return &JobCmd{flags: flags}
}

// Register adds the job command to the application
func (cmd *JobCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "job",
		Usage: "Manage running stages and jobs",
		Commands: []*cli.Command{
			{
				Name:      "rerun",
				Usage:     "Rerun a job with optional config overrides",
				UsageText: "cicd job rerun --job NAME [--override k=v]...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "job",
						Usage:       "job to rerun",
						Required:    true,
						Destination: &cmd.rerunJob,
					},
					&cli.StringSliceFlag{
						Name:        "override",
						Usage:       "config values to override as key=value",
						Destination: &cmd.overrides,
					},
				},
				Action: cmd.runRerun,
			},
			{
				Name:      "stop",
				Usage:     "Stop a running stage or job",
				UsageText: "cicd job stop --stage NAME | --job NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "stage",
						Usage:       "stage to stop",
						Destination: &cmd.stopStage,
					},
					&cli.StringFlag{
						Name:        "job",
						Usage:       "job to stop",
						Destination: &cmd.stopJob,
					},
				},
				Action: cmd.runStop,
			},
		},
	})

	return root
}

func (cmd *JobCmd) runRerun(ctx context.Context, c *cli.Command) error {
	overrides, err := request.ParseOverrides(cmd.overrides...)
	if err != nil {
		return usageExit(err)
	}

	_, p := withPrinter(ctx, c)
	if len(overrides) > 0 {
		p.Printf("Temporarily overriding the following config values: %s", formatOverrides(overrides))
	}
	p.Printf("Rerunning job %s", cmd.rerunJob)
	return nil
}

func (cmd *JobCmd) runStop(ctx context.Context, c *cli.Command) error {
	if err := exactlyOne(cmd.stopStage, cmd.stopJob); err != nil {
		return err
	}

	_, p := withPrinter(ctx, c)
	if cmd.stopStage != "" {
		p.Printf("Stage %s has stopped.", cmd.stopStage)
		return nil
	}
	p.Printf("Job %s has stopped.", cmd.stopJob)
	return nil
}

func formatOverrides(overrides map[string]string) string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, overrides[k]))
	}
	return strings.Join(pairs, ", ")
}
