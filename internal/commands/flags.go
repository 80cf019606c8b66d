package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/printer"
	"github.com/t3-cicd/cicd/internal/request"
	"github.com/t3-cicd/cicd/internal/settings"
)

// UsageExitCode is the exit status for invalid flag combinations.
const UsageExitCode = 2

type Flags struct {
	LogLevel     string
	LogFile      string
	SettingsPath string

	// Settings is loaded on first use by Store. Commands that never read
	// settings leave the settings file untouched.
	Settings *settings.Store
}

// Store returns the settings store, loading it from SettingsPath on first use.
func (f *Flags) Store(ctx context.Context) (*settings.Store, error) {
	if f.Settings != nil {
		return f.Settings, nil
	}
	store, err := settings.Load(ctx, f.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	f.Settings = store
	return store, nil
}

// DefaultSettingsPath returns the default settings file path using XDG_CONFIG_HOME.
func DefaultSettingsPath() string {
	return settings.DefaultPath()
}

// withPrinter binds a Printer on the root writer to ctx.
func withPrinter(ctx context.Context, c *cli.Command) (context.Context, *printer.Printer) {
	p := printer.New(c.Root().Writer)
	return printer.NewContext(ctx, p), p
}

// usageExit converts a usage error into an exit error carrying UsageExitCode.
func usageExit(err error) error {
	var usage *request.UsageError
	if errors.As(err, &usage) {
		return cli.Exit("Error: "+usage.Msg, UsageExitCode)
	}
	return err
}

func usagef(msg string) error {
	return cli.Exit("Error: "+msg, UsageExitCode)
}

// exactlyOne checks that exactly one of the named flag values is set.
func exactlyOne(a, b string) error {
	switch {
	case a != "" && b != "":
		return usagef("Specify either --job or --stage, but not both.")
	case a == "" && b == "":
		return usagef("Either --job or --stage is required.")
	}
	return nil
}
