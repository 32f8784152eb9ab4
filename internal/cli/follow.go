package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var followPoll time.Duration

var followCmd = &cobra.Command{
	Use:   "follow FILE",
	Short: "Stream a file or named pipe to stdout until interrupted",
	Long: `Stream FILE to stdout and keep reading after end of file, polling for new
data, until interrupted. With error_on_missing set, removing the file stops
the command with an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().DurationVar(&followPoll, "poll", 250*time.Millisecond, "delay between reads after end of file")
	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := app.cfg.StreamOptions(args[0])
	opts.CloseOnEndOfFile = false
	if cmd.Flags().Changed("poll") || opts.PollInterval == 0 {
		opts.PollInterval = followPoll
	}
	ws := newWatchedSession(opts)
	defer ws.shutdown()

	if err := ws.OpenWait(ctx, ""); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}

	// A session error (the file went away) ends the follow like an interrupt.
	copyErr := make(chan error, 1)
	go func() {
		_, err := ws.copyStream(ctx, cmd.OutOrStdout())
		copyErr <- err
	}()

	select {
	case err := <-copyErr:
		return err
	case err := <-ws.errs:
		ws.Detach()
		<-copyErr
		return err
	case <-ctx.Done():
		if err := <-copyErr; err != nil {
			return err
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}
}
