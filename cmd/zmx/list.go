package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zmxhq/zmx/internal/namespace"
)

var listShort bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions in the group",
	Long: `Probe every session socket in the group and print one line per live
session. Sockets whose daemons are gone are cleaned up along the way.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listShort, "short", false, "Print session names only")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	group, err := resolveGroup(cmd)
	if err != nil {
		return err
	}

	sessions, err := namespace.Discover(group)
	if err != nil {
		return err
	}

	if listShort {
		for _, sess := range sessions {
			fmt.Println(sess.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPID\tCLIENTS\tCMD")
	for _, sess := range sessions {
		cmdCol := sess.Cmd
		if cmdCol == "" {
			cmdCol = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", sess.Name, sess.Pid, sess.Clients, cmdCol)
	}
	return w.Flush()
}
