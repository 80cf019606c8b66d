package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/app"
	"github.com/t3-cicd/cicd/internal/request"
)

type ValidateCmd struct {
	flags *Flags
	app   *app.App

	// flags
	file string
}

// NewValidateCmd creates a new validate command
func NewValidateCmd(flags *Flags, application *app.App) *ValidateCmd {
	return &ValidateCmd{flags: flags, app: application}
}

// Register adds the validate command to the application
func (cmd *ValidateCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "validate",
		Usage:     "Validate a pipeline config file on the pipeline server",
		UsageText: "cicd validate [--file PATH]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path of the config file from the project root (defaults to " + request.DefaultConfigPath + ")",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return root
}

func (cmd *ValidateCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, _ = withPrinter(ctx, c)
	store, err := cmd.flags.Store(ctx)
	if err != nil {
		return err
	}
	return usageExit(cmd.app.ValidateConfig(ctx, store.Current(), request.ValidateInput{File: cmd.file}))
}
