package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zmxhq/zmx/internal/client"
	"github.com/zmxhq/zmx/internal/namespace"
	"github.com/zmxhq/zmx/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run NAME [command...]",
	Short: "Inject a command into a session without attaching",
	Long: `Send a command line to the named session's shell, creating the
session first if it does not exist. The command is taken from the
arguments, or from stdin when stdin is not a terminal and no arguments
are given. Exits once the daemon acknowledges the write.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}
	name := args[0]

	var cmdline []byte
	if len(args) > 1 {
		cmdline = []byte(strings.Join(args[1:], " "))
	} else if !isTerminal(os.Stdin) {
		cmdline, err = io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
	}
	if len(cmdline) == 0 {
		return errors.New("no command given (pass arguments or pipe stdin)")
	}
	if cmdline[len(cmdline)-1] != '\n' {
		cmdline = append(cmdline, '\n')
	}

	cols, rows := 80, 24
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if c, r, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols, rows = c, r
		}
	}

	if _, err := session.Ensure(group, name, session.Options{Cols: cols, Rows: rows}); err != nil {
		return err
	}

	return client.Run(namespace.SocketPath(group, name), cmdline)
}
