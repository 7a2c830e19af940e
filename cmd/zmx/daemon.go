package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/daemon"
	"github.com/zmxhq/zmx/internal/namespace"
)

// __daemon is the hidden entry point the CLI re-executes itself with to
// become a detached session daemon. Users never run it directly.
var daemonCmd = &cobra.Command{
	Use:    "__daemon NAME [command...]",
	Hidden: true,
	Args:   cobra.MinimumNArgs(1),
	RunE:   runDaemonEntry,
}

var (
	daemonGroup string
	daemonCols  int
	daemonRows  int
	daemonDir   string
)

func init() {
	daemonCmd.Flags().StringVar(&daemonGroup, "group", namespace.DefaultGroup, "Session group")
	daemonCmd.Flags().IntVar(&daemonCols, "cols", 80, "Initial PTY columns")
	daemonCmd.Flags().IntVar(&daemonRows, "rows", 24, "Initial PTY rows")
	daemonCmd.Flags().StringVar(&daemonDir, "dir", "", "Shell working directory")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonEntry(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := namespace.EnsureDirs(daemonGroup); err != nil {
		return err
	}
	if err := daemon.SetupLog(daemonGroup, name); err != nil {
		// Fall back to the inherited stderr, which points at the global log.
		fmt.Fprintf(os.Stderr, "%s: session log: %v\n", appName, err)
	}

	d, err := daemon.New(daemon.Config{
		Name:    name,
		Group:   daemonGroup,
		Command: args[1:],
		Dir:     daemonDir,
		Backend: os.Getenv("ZMX_BACKEND"),
		Cols:    daemonCols,
		Rows:    daemonRows,
	})
	if err != nil {
		return err
	}
	d.Run()
	return nil
}
