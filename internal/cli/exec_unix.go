//go:build unix

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

var execFifo string

var execCmd = &cobra.Command{
	Use:   `exec "COMMAND [ARGS]"...`,
	Short: "Run commands and stream their combined output through a named pipe",
	Long: `Create a named pipe, run every COMMAND concurrently with its stdout
redirected into the pipe, and stream the pipe to stdout. Each COMMAND is one
argument, split with shell quoting rules but not run through a shell.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVar(&execFifo, "fifo", "", "named pipe to create (default is a temporary path)")
	rootCmd.AddCommand(execCmd)
}

func parseCommands(args []string) ([][]string, error) {
	commands := make([][]string, 0, len(args))
	for _, arg := range args {
		words, err := shellquote.Split(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse command %q: %w", arg, err)
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		commands = append(commands, words)
	}
	return commands, nil
}

func runExec(cmd *cobra.Command, args []string) error {
	commands, err := parseCommands(args)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fifo := execFifo
	if fifo == "" {
		dir, err := os.MkdirTemp("", "fdstream-exec-")
		if err != nil {
			return fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		fifo = filepath.Join(dir, "out.pipe")
	}
	if err := unix.Mkfifo(fifo, 0600); err != nil {
		return fmt.Errorf("failed to create named pipe: %w", err)
	}
	if execFifo != "" {
		defer os.Remove(fifo)
	}

	opts := app.cfg.StreamOptions(fifo)
	opts.CloseOnEndOfFile = true
	opts.ErrorOnMissing = false
	ws := newWatchedSession(opts)
	defer ws.shutdown()

	// Opening either end of a FIFO blocks until the other end is opened, so
	// the session open is started before the write end.
	opened := make(chan error, 1)
	go func() { opened <- ws.OpenWait(ctx, "") }()

	w, err := os.OpenFile(fifo, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open named pipe for writing: %w", err)
	}
	if err := <-opened; err != nil {
		w.Close()
		return fmt.Errorf("failed to open %s: %w", fifo, err)
	}

	copied := make(chan error, 1)
	go func() {
		_, err := ws.copyStream(ctx, cmd.OutOrStdout())
		copied <- err
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, words := range commands {
		words := words
		g.Go(func() error {
			return runChild(gctx, words, w, cmd.ErrOrStderr())
		})
	}
	runErr := g.Wait()

	// The pipe reaches end of file once the last write end is closed.
	w.Close()

	if err := <-copied; err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if ctx.Err() != nil {
		return nil
	}
	return ws.waitClosed(ctx)
}

func runChild(ctx context.Context, words []string, stdout *os.File, stderr io.Writer) error {
	child := exec.CommandContext(ctx, words[0], words[1:]...)
	child.Stdout = stdout
	child.Stderr = stderr

	logger := log.With().Str("command", shellquote.Join(words...)).Logger()
	logger.Debug().Msg("Starting command")
	if err := child.Run(); err != nil {
		logger.Warn().Err(err).Msg("Command failed")
		return fmt.Errorf("command %q failed: %w", words[0], err)
	}
	logger.Debug().Msg("Command finished")
	return nil
}
