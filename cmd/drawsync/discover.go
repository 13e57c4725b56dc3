package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/danmuck/drawsync/internal/discovery"
	"github.com/danmuck/drawsync/internal/logging"
	"github.com/spf13/cobra"
)

func discoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List drawsync peers announcing on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			peers, err := discovery.Browse(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(peers) == 0 {
				fmt.Fprintln(out, "no peers found")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENDPOINT\tHOST\tPEER ID")
			for _, p := range peers {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Endpoint(), p.Host, p.PeerID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "how long to listen for answers")
	return cmd
}
