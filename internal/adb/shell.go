package adb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// sentinel marking the end of one command's output in the shell stream.
// The trailing token on the sentinel line is the command's exit status.
const shellSentinel = "ADBSINKEND"

// Shell is a persistent `adb shell` session. Spawning one adb process per
// mkdir/rm/touch is prohibitively slow on large trees, so mutations reuse
// this single session.
type Shell struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	mu sync.Mutex
}

// OpenShell starts an interactive shell on the device.
func (c *Client) OpenShell(ctx context.Context) (*Shell, error) {
	cmd := exec.CommandContext(ctx, c.bin, c.argv("shell")...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("shell stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("shell stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start adb shell: %w", err)
	}

	return &Shell{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}, nil
}

// Exec runs one command line in the session and returns its output.
// Device stderr is merged into stdout by adb, so failure output lands in the
// returned error. Cancelling ctx kills the session.
func (s *Shell) Exec(ctx context.Context, line string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	stop := context.AfterFunc(ctx, func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
	})
	defer stop()

	if _, err := io.WriteString(s.stdin, line+"; echo "+shellSentinel+" $?\n"); err != nil {
		return "", fmt.Errorf("shell write: %w", err)
	}

	var out strings.Builder
	for s.stdout.Scan() {
		text := strings.TrimRight(s.stdout.Text(), "\r")
		rest, found := strings.CutPrefix(text, shellSentinel)
		if !found {
			out.WriteString(text)
			out.WriteByte('\n')
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return "", fmt.Errorf("shell sentinel %q: %w", text, err)
		}
		if code != 0 {
			return "", &CmdError{Args: []string{"shell", line}, Output: fmt.Sprintf("exit %d: %s", code, strings.TrimSpace(out.String()))}
		}
		return out.String(), nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.stdout.Err(); err != nil {
		return "", fmt.Errorf("shell read: %w", err)
	}
	return "", fmt.Errorf("shell closed: %w", io.ErrUnexpectedEOF)
}

// Close terminates the session.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// Quote makes a path safe for the device shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
