// Package adb wraps the adb binary: one-shot commands, a persistent shell
// session and device discovery. Higher layers never shell out themselves.
package adb

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const DefaultBin = "adb"

var (
	// ErrBinaryNotFound means the adb binary is not on PATH.
	ErrBinaryNotFound = errors.New("adb binary not found")

	// ErrNoDevice means no device is attached or connectable.
	ErrNoDevice = errors.New("no device attached")

	// ErrMultipleDevices means more than one device is attached and no serial
	// was given to pick one.
	ErrMultipleDevices = errors.New("multiple devices attached, select one with --serial")
)

// CmdError carries the adb-reported failure for a single invocation.
type CmdError struct {
	Args   []string
	Output string
}

func (e *CmdError) Error() string {
	return fmt.Sprintf("adb %s: %s", strings.Join(e.Args, " "), strings.TrimSpace(e.Output))
}

// Client invokes adb against one device. A zero serial targets the single
// attached device, matching adb's own behavior.
type Client struct {
	bin    string
	serial string
}

type Option func(*Client)

// WithBin overrides the adb binary path. An empty value keeps the default.
func WithBin(bin string) Option {
	return func(c *Client) {
		if bin != "" {
			c.bin = bin
		}
	}
}

// WithSerial pins all commands to the device with the given serial.
func WithSerial(serial string) Option {
	return func(c *Client) {
		c.serial = serial
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{bin: DefaultBin}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Serial() string {
	return c.serial
}

// argv prepends the serial selector when one is set.
func (c *Client) argv(args ...string) []string {
	if c.serial == "" {
		return args
	}
	return append([]string{"-s", c.serial}, args...)
}

// Run executes a one-shot adb command and returns its stdout.
// adb reports most failures on stderr with a zero exit code, so any stderr
// output or an "adb: error:" stdout prefix is treated as a failure.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	argv := c.argv(args...)
	cmd := exec.CommandContext(ctx, c.bin, argv...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrBinaryNotFound
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		out := stderr.String()
		if out == "" {
			out = stdout.String()
		}
		if out == "" {
			out = err.Error()
		}
		return "", &CmdError{Args: argv, Output: out}
	}

	if errOut := stderr.String(); strings.TrimSpace(errOut) != "" {
		return "", &CmdError{Args: argv, Output: errOut}
	}

	out := stdout.String()
	if strings.HasPrefix(out, "adb: error:") {
		return "", &CmdError{Args: argv, Output: out}
	}

	return out, nil
}
