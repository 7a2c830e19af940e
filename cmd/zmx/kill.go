package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/client"
	"github.com/zmxhq/zmx/internal/namespace"
)

var killCmd = &cobra.Command{
	Use:   "kill NAME",
	Short: "Terminate a session and its shell",
	Args:  cobra.ExactArgs(1),
	RunE:  runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	path := namespace.SocketPath(group, args[0])
	if _, err := namespace.ProbeSession(path); err != nil {
		return fmt.Errorf("session %q: %w", args[0], err)
	}
	return client.Kill(path)
}
