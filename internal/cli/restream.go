package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	restreamWindow time.Duration
	restreamPause  time.Duration
)

var restreamCmd = &cobra.Command{
	Use:   "restream FILE",
	Short: "Stream a file, detach for a while, then re-attach",
	Long: `Stream FILE to stdout for --window, detach, wait for --pause, then attach a
new stream that picks up where the first left off. The second stream runs
until end of file or until interrupted. No byte is lost or repeated across
the detach.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestream,
}

func init() {
	restreamCmd.Flags().DurationVar(&restreamWindow, "window", time.Second, "how long the first stream stays attached")
	restreamCmd.Flags().DurationVar(&restreamPause, "pause", time.Second, "how long to stay detached")
	rootCmd.AddCommand(restreamCmd)
}

func runRestream(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := app.cfg.StreamOptions(args[0])
	ws := newWatchedSession(opts)
	defer ws.shutdown()

	if err := ws.OpenWait(ctx, ""); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}

	windowCtx, cancel := context.WithTimeout(ctx, restreamWindow)
	first, err := ws.copyStream(windowCtx, cmd.OutOrStdout())
	ended := windowCtx.Err() == nil
	cancel()
	if err != nil {
		return err
	}

	// Reaching end of file with close_on_eof set ends the stream early.
	if ended {
		log.Info().Int64("bytes", first).Msg("Stream ended before the window elapsed")
		return ws.waitClosed(ctx)
	}
	if ctx.Err() != nil {
		return nil
	}
	log.Info().Int64("bytes", first).Msg("First stream detached")

	select {
	case <-time.After(restreamPause):
	case <-ctx.Done():
		return nil
	}

	second, err := ws.copyStream(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	log.Info().Int64("bytes", second).Msg("Second stream ended")
	return nil
}
