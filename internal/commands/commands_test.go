package commands

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/t3-cicd/cicd/internal/settings"
)

type registrar interface {
	Register(root *cli.Command) *cli.Command
}

func newTestFlags(t *testing.T) *Flags {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cicd", "config.json")
	store, err := settings.Load(context.Background(), path)
	require.NoError(t, err)
	return &Flags{SettingsPath: path, Settings: store}
}

// runCLI executes args against a root with the given commands registered and
// returns the captured stdout.
func runCLI(t *testing.T, args []string, cmds ...registrar) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := &cli.Command{
		Name:           "cicd",
		Writer:         &buf,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	for _, c := range cmds {
		root = c.Register(root)
	}
	err := root.Run(context.Background(), append([]string{"cicd"}, args...))
	return buf.String(), err
}

func requireUsageExit(t *testing.T, err error, msg string) {
	t.Helper()
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, UsageExitCode, exitErr.ExitCode())
	require.Equal(t, "Error: "+msg, exitErr.Error())
}
