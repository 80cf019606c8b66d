package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/printer"
	"github.com/t3-cicd/cicd/internal/settings"
)

type ConfigCmd struct {
	flags *Flags
}

// NewConfigCmd creates a new config command
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command to the application
func (cmd *ConfigCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "config",
		Usage: "Manage CLI settings",
		Description: `Shows, updates or resets the settings stored in the settings file.

The values "", "none" and "null" passed to set leave a field unchanged.`,
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Display the current settings",
				Action: cmd.runShow,
			},
			{
				Name:      "set",
				Usage:     "Update settings",
				UsageText: "cicd config set [--is-repo-remote true|false] [--is-run-remote true|false] [--repo R] [--branch B] [--server URL] [--format plain|json|yaml]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "is-repo-remote",
						Usage: "true when the repo is a remote Git URL rather than a local path",
					},
					&cli.StringFlag{
						Name:  "is-run-remote",
						Usage: "true to run the pipeline remotely",
					},
					&cli.StringFlag{
						Name:  "repo",
						Usage: "Git URL (remote repo) or absolute path (local repo) of the repository",
					},
					&cli.StringFlag{
						Name:  "branch",
						Usage: "branch of the remote repo",
					},
					&cli.StringFlag{
						Name:  "server",
						Usage: "base URL of the pipeline server",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: plain, json or yaml",
					},
				},
				Action: cmd.runSet,
			},
			{
				Name:   "reset",
				Usage:  "Restore the default settings",
				Action: cmd.runReset,
			},
		},
	})

	return root
}

func (cmd *ConfigCmd) runShow(ctx context.Context, c *cli.Command) error {
	_, p := withPrinter(ctx, c)
	store, err := cmd.flags.Store(ctx)
	if err != nil {
		return err
	}
	return display(p, store.Current())
}

func (cmd *ConfigCmd) runSet(ctx context.Context, c *cli.Command) error {
	_, p := withPrinter(ctx, c)

	if c.Args().Present() {
		return usagef(fmt.Sprintf("Unexpected argument %q.", c.Args().First()))
	}

	var (
		u   settings.Update
		err error
	)
	if u.IsRepoRemote, err = boolFlag(c, "is-repo-remote"); err != nil {
		return err
	}
	if u.IsRunRemote, err = boolFlag(c, "is-run-remote"); err != nil {
		return err
	}
	u.Repo = stringFlag(c, "repo")
	u.Branch = stringFlag(c, "branch")
	u.Server = stringFlag(c, "server")
	u.Format = stringFlag(c, "format")

	store, err := cmd.flags.Store(ctx)
	if err != nil {
		return err
	}

	if err := store.Update(u); err != nil {
		var fieldErrs criterio.FieldErrors
		switch {
		case errors.Is(err, settings.ErrInvalidFormat):
			p.Printf("Format has to be plain/ json/ yaml.")
			return nil
		case errors.As(err, &fieldErrs):
			p.Errorf("%v", err)
			return nil
		default:
			return fmt.Errorf("update settings: %w", err)
		}
	}

	p.Successf("Settings updated.")
	return display(p, store.Current())
}

func (cmd *ConfigCmd) runReset(ctx context.Context, c *cli.Command) error {
	_, p := withPrinter(ctx, c)

	store, err := cmd.flags.Store(ctx)
	if err != nil {
		return err
	}

	if err := store.Reset(); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}

	p.Successf("Configuration has been reset to default.")
	return display(p, store.Current())
}

// display renders s in its own configured format. Only plain output carries
// the banner so json and yaml stay machine readable.
func display(p *printer.Printer, s settings.Settings) error {
	if s.Format == settings.FormatPlain {
		p.Headerf("====Displaying current configuration====")
		p.Printf("")
	}
	return p.Render(string(s.Format), s)
}

func stringFlag(c *cli.Command, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// boolFlag parses a true/false flag value. Unset flags and null sentinels
// yield nil so the stored value is kept.
func boolFlag(c *cli.Command, name string) (*bool, error) {
	if !c.IsSet(name) || settings.IsNull(c.String(name)) {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(c.String(name)))
	if err != nil {
		return nil, usagef(fmt.Sprintf("--%s expects true or false, got %q.", name, c.String(name)))
	}
	return &v, nil
}
