package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zmxhq/zmx/internal/client"
	"github.com/zmxhq/zmx/internal/namespace"
	"github.com/zmxhq/zmx/internal/session"
)

var attachCmd = &cobra.Command{
	Use:   "attach NAME [command...]",
	Short: "Attach to a session, creating it first if needed",
	Long: `Attach the current terminal to the named session.

If no session of that name exists, one is created running the given
command, or a login shell when none is given. Detach with Ctrl+\; the
session keeps running in the background.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	if current := os.Getenv("ZMX_SESSION"); current != "" {
		return fmt.Errorf("already inside session %q; nested attach is not supported", current)
	}

	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}
	name := args[0]

	cols, rows := 80, 24
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if c, r, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
			cols, rows = c, r
		}
	}

	if _, err := session.Ensure(group, name, session.Options{
		Command: args[1:],
		Cols:    cols,
		Rows:    rows,
	}); err != nil {
		return err
	}

	return client.Attach(namespace.SocketPath(group, name))
}
