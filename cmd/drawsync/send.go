package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/drawsync/internal/canvas"
	"github.com/danmuck/drawsync/internal/logging"
	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/danmuck/drawsync/internal/transport"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	to        string
	color     string
	thickness int32
	timeout   time.Duration
}

func sendCmd() *cobra.Command {
	flags := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to a peer without running a listener",
	}
	cmd.PersistentFlags().StringVar(&flags.to, "to", "localhost:2000", "target peer as host:port")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "resolve-timeout", 2*time.Second, "host resolution timeout")

	segment := &cobra.Command{
		Use:   "segment <sx> <sy> <ex> <ey>",
		Short: "Send one stroke segment",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildSegment(args, flags.color, flags.thickness)
			if err != nil {
				return err
			}
			return sendOne(cmd, flags, msg)
		},
	}
	segment.Flags().StringVar(&flags.color, "color", "black", "palette name or #rrggbb")
	segment.Flags().Int32Var(&flags.thickness, "thickness", 3, "stroke thickness (1-50)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Tell a peer to clear its canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOne(cmd, flags, protocol.Clear{})
		},
	}

	cmd.AddCommand(segment, clearCmd)
	return cmd
}

func buildSegment(args []string, color string, thickness int32) (protocol.Segment, error) {
	coords := make([]int32, len(args))
	for i, raw := range args {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return protocol.Segment{}, fmt.Errorf("coordinate %q: %w", raw, err)
		}
		coords[i] = int32(v)
	}
	if thickness < 1 || thickness > canvas.MaxUIThickness {
		return protocol.Segment{}, fmt.Errorf("thickness %d outside 1-%d", thickness, canvas.MaxUIThickness)
	}
	rgb, err := canvas.ParseColor(color)
	if err != nil {
		return protocol.Segment{}, err
	}
	return protocol.Segment{
		Start:     protocol.Point{X: coords[0], Y: coords[1]},
		End:       protocol.Point{X: coords[2], Y: coords[3]},
		Color:     rgb,
		Thickness: thickness,
	}, nil
}

func sendOne(cmd *cobra.Command, flags *sendFlags, msg protocol.Message) error {
	logging.ConfigureRuntime()
	remote, err := transport.ParseEndpoint(flags.to)
	if err != nil {
		return err
	}
	link, err := transport.NewLink(transport.LinkConfig{
		Remote:         remote,
		ResolveTimeout: flags.timeout,
	})
	if err != nil {
		return err
	}
	defer link.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := link.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", msg.Kind(), remote)
	return nil
}
