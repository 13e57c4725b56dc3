package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "drawsync: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := serveCmd()
	root.Use = "drawsync [listenPort] [remoteHost] [remotePort]"
	root.Short = "Two-peer shared drawing canvas over UDP"
	root.Long = `drawsync mirrors freehand strokes between two peers. Each peer listens on
one UDP port and sends every local stroke and clear to one remote peer.

Running drawsync with no subcommand serves a peer, the same as "drawsync serve".`
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(
		serveCmd(),
		sendCmd(),
		discoverCmd(),
		configCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}
			fmt.Fprintf(out, "drawsync %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", date)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	return cmd
}
