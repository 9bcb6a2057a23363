package ptyproc

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitRecordsExitOnSelfExit(t *testing.T) {
	p, err := Spawn(os.TempDir(), "/bin/sh", []string{"-c", "exit 0"}, os.Environ())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return for a self-exiting process")
	}

	assert.True(t, p.WaitExited(10*time.Millisecond))
	assert.False(t, p.Killed())
}

func TestKillSendsTermThenReturnsOnceExited(t *testing.T) {
	p, err := Spawn(os.TempDir(), "/bin/sh", []string{"-c", "trap 'exit 0' TERM; sleep 5"}, os.Environ())
	require.NoError(t, err)

	go func() { _ = p.Wait() }()

	start := time.Now()
	p.Kill()
	elapsed := time.Since(start)

	assert.True(t, p.Killed())
	assert.True(t, p.WaitExited(time.Second), "process should have exited shortly after Kill")
	assert.Less(t, elapsed, 2*time.Second, "Kill should return promptly when the child honors SIGTERM")
}

func TestKillEscalatesToSigkillWhenTermIgnored(t *testing.T) {
	p, err := Spawn(os.TempDir(), "/bin/sh", []string{"-c", "trap '' TERM; sleep 5"}, os.Environ())
	require.NoError(t, err)

	go func() { _ = p.Wait() }()

	p.Kill()

	assert.True(t, p.Killed())
	assert.True(t, p.WaitExited(time.Second), "SIGKILL fallback should have reaped the process after the grace period")
}
