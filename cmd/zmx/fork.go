package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zmxhq/zmx/internal/session"
)

var forkCmd = &cobra.Command{
	Use:   "fork [SOURCE [NAME]]",
	Short: "Create a new session with a running session's command and cwd",
	Long: `Clone a live session: the new session starts the same command in the
same working directory. The source defaults to the current session
($ZMX_SESSION); the new name defaults to "SOURCE-N" for the smallest
free N. The new session is not attached.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runFork,
}

func init() {
	rootCmd.AddCommand(forkCmd)
}

func runFork(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	var source string
	if len(args) > 0 {
		source = args[0]
	} else if source = os.Getenv("ZMX_SESSION"); source == "" {
		return errors.New("no source session given and $ZMX_SESSION is not set")
	}
	var target string
	if len(args) > 1 {
		target = args[1]
	}

	cols, rows := 80, 24
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if c, r, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols, rows = c, r
		}
	}

	name, err := session.Fork(group, source, target, cols, rows)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}
