package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/namespace"
)

const (
	appName    = "zmx"
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Terminal session persistence",
	Long: `Zmx keeps shell sessions alive in background daemons.

Attach to a named session from any terminal; detach and the shell keeps
running. Re-attaching replays the live screen. Sessions are plain Unix
sockets under a per-group directory, so everything works with ordinary
filesystem permissions.`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("group", "", "Session group (default $ZMX_GROUP or \"default\")")
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// resolveGroup picks the session group from the flag, then the environment.
func resolveGroup(cmd *cobra.Command) (string, error) {
	group, _ := cmd.Root().PersistentFlags().GetString("group")
	if group == "" {
		group = namespace.Group()
	}
	if err := namespace.CheckGroup(group); err != nil {
		return "", err
	}
	return group, nil
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
