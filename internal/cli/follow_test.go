package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowCommand(t *testing.T) {
	path := writeFile(t, "app.log", "first\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(t, ctx, out, "follow", "--poll", "10ms", path)
	}()

	require.Eventually(t, func() bool { return out.String() == "first\n" }, 2*time.Second, 5*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return out.String() == "first\nsecond\n" }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not stop after cancellation")
	}
}

func TestFollowCommand_FileRemoved(t *testing.T) {
	path := writeFile(t, "app.log", "data\n")

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(t, nil, out, "follow", "--poll", "10ms", path)
	}()

	require.Eventually(t, func() bool { return out.String() == "data\n" }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, os.Remove(path))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no longer accessible")
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not report the removed file")
	}
}
