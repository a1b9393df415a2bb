// Package runner executes mutation scripts as child processes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ScriptFailedError reports a mutation script that exited non-zero or was
// killed on timeout.
type ScriptFailedError struct {
	Command  string
	ExitCode int
}

func (e *ScriptFailedError) Error() string {
	return fmt.Sprintf("runner: script %q failed with exit code %d", e.Command, e.ExitCode)
}

// Script describes one mutation-script invocation.
type Script struct {
	// Command is an opaque shell command line, run via sh -c. applyctl
	// never parses or sandboxes it.
	Command string

	// Dir is the working directory the script runs in.
	Dir string

	// Env is the overlay appended to the parent environment. The parent
	// environment itself is never mutated, so concurrent pipelines in
	// one process cannot contaminate each other.
	Env []string

	// Timeout bounds the run; zero means no deadline.
	Timeout time.Duration
}

// Run executes the script to completion and returns its captured stdout.
// Stderr passes through to the parent's stderr. A non-zero exit, or a
// timeout, yields a *ScriptFailedError.
func Run(ctx context.Context, script Script) ([]byte, error) {
	if script.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, script.Timeout)
		defer cancel()
	}

	cmd := exec.Command("sh", "-c", script.Command)
	cmd.Dir = script.Dir
	cmd.Env = append(os.Environ(), script.Env...)
	cmd.Stderr = os.Stderr
	// Own process group so the whole shell tree dies on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	log.Debug().
		Str("command", script.Command).
		Str("dir", script.Dir).
		Msg("running mutation script")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("runner: start script: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		log.Warn().Str("command", script.Command).Msg("mutation script timed out")
		return stdout.Bytes(), &ScriptFailedError{Command: script.Command, ExitCode: -1}
	case err := <-done:
		if err == nil {
			return stdout.Bytes(), nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ScriptFailedError{Command: script.Command, ExitCode: exitErr.ExitCode()}
		}
		return stdout.Bytes(), fmt.Errorf("runner: wait for script: %w", err)
	}
}
