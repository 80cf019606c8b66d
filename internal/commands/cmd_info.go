package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

type InfoCmd struct {
	flags *Flags

	// flags
	stage string
	job   string
}

// NewInfoCmd creates a new info command
func NewInfoCmd(flags *Flags) *InfoCmd {
	return &InfoCmd{flags: flags}
}

// Register adds the info command to the application
func (cmd *InfoCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "info",
		Usage:     "Show environment info of a stage or job",
		UsageText: "cicd info --stage NAME | --job NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "stage",
				Usage:       "stage to describe",
				Destination: &cmd.stage,
			},
			&cli.StringFlag{
				Name:        "job",
				Usage:       "job to describe",
				Destination: &cmd.job,
			},
		},
		Action: cmd.run,
	})

	return root
}

func (cmd *InfoCmd) run(ctx context.Context, c *cli.Command) error {
	if err := exactlyOne(cmd.stage, cmd.job); err != nil {
		return err
	}

	_, p := withPrinter(ctx, c)
	if cmd.stage != "" {
		p.Printf("Environment info of stage %s.", cmd.stage)
		return nil
	}
	p.Printf("Environment info of job %s.", cmd.job)
	return nil
}
