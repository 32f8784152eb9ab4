package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat FILE...",
	Short: "Stream files to stdout one after another",
	Long: `Stream each file to stdout in order. Every file is opened, streamed until
end of file, and closed before the next one is opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	for _, path := range args {
		opts := app.cfg.StreamOptions(path)
		opts.CloseOnEndOfFile = true
		ws := newWatchedSession(opts)

		if err := ws.OpenWait(ctx, ""); err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		n, err := ws.copyStream(ctx, cmd.OutOrStdout())
		if err != nil {
			ws.shutdown()
			return err
		}
		if err := ws.waitClosed(ctx); err != nil {
			ws.shutdown()
			return fmt.Errorf("failed to close %s: %w", path, err)
		}
		log.Debug().Str("path", path).Int64("bytes", n).Msg("File streamed")
	}
	return nil
}
