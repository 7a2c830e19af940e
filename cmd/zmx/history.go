package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/client"
	"github.com/zmxhq/zmx/internal/namespace"
	"github.com/zmxhq/zmx/internal/vterm"
)

var (
	historyVT   bool
	historyHTML bool
)

var historyCmd = &cobra.Command{
	Use:   "history NAME",
	Short: "Print a session's screen contents",
	Long: `Fetch the session's current screen and write it to stdout: plain text
by default, a replayable escape stream with --vt, or HTML with --html.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyVT, "vt", false, "Emit a VT escape stream")
	historyCmd.Flags().BoolVar(&historyHTML, "html", false, "Emit HTML")
	historyCmd.MarkFlagsMutuallyExclusive("vt", "html")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	format := vterm.FormatPlain
	switch {
	case historyVT:
		format = vterm.FormatVT
	case historyHTML:
		format = vterm.FormatHTML
	}

	path := namespace.SocketPath(group, args[0])
	if _, err := namespace.ProbeSession(path); err != nil {
		return fmt.Errorf("session %q: %w", args[0], err)
	}

	data, err := client.History(path, format)
	if err != nil {
		if errors.Is(err, client.ErrTimeout) {
			return fmt.Errorf("session %q: history timed out", args[0])
		}
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
