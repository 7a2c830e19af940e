package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/client"
	"github.com/zmxhq/zmx/internal/namespace"
)

var detachCmd = &cobra.Command{
	Use:   "detach [NAME]",
	Short: "Detach every client from a session",
	Long: `Detach all clients from the named session, or from the current one
when run inside a session ($ZMX_SESSION). The session keeps running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetach,
}

var detachAllCmd = &cobra.Command{
	Use:   "detach-all",
	Short: "Detach every client from every session in the group",
	Args:  cobra.NoArgs,
	RunE:  runDetachAll,
}

func init() {
	rootCmd.AddCommand(detachCmd)
	rootCmd.AddCommand(detachAllCmd)
}

func runDetach(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else if name = os.Getenv("ZMX_SESSION"); name == "" {
		return errors.New("no session name given and $ZMX_SESSION is not set")
	}

	path := namespace.SocketPath(group, name)
	if _, err := namespace.ProbeSession(path); err != nil {
		return fmt.Errorf("session %q: %w", name, err)
	}
	return client.DetachAll(path)
}

func runDetachAll(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	sessions, err := namespace.Discover(group)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := client.DetachAll(sess.Path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: detach %s: %v\n", appName, sess.Name, err)
		}
	}
	return nil
}
