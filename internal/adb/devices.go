package adb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type DeviceState string

const (
	DeviceOnline       DeviceState = "device"
	DeviceOffline      DeviceState = "offline"
	DeviceUnauthorized DeviceState = "unauthorized"
)

// Device is one row of `adb devices -l`.
type Device struct {
	Serial  string
	State   DeviceState
	Product string
	Model   string
}

func (d Device) Online() bool {
	return d.State == DeviceOnline
}

func (d Device) String() string {
	if d.Model != "" {
		return fmt.Sprintf("%s (%s, %s)", d.Serial, d.Model, d.State)
	}
	return fmt.Sprintf("%s (%s)", d.Serial, d.State)
}

// StartServer brings up the adb daemon. The daemon startup banner goes to
// stderr even on success, so it is not treated as a failure.
func (c *Client) StartServer(ctx context.Context) error {
	_, err := c.Run(ctx, "start-server")
	var cmdErr *CmdError
	if errors.As(err, &cmdErr) && strings.HasPrefix(strings.TrimSpace(cmdErr.Output), "* daemon") {
		return nil
	}
	return err
}

// Devices lists attached devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.Run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

// Connect dials a device over TCP (`adb connect host:port`).
func (c *Client) Connect(ctx context.Context, addr string) error {
	out, err := c.Run(ctx, "connect", addr)
	if err != nil {
		return err
	}
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "connected to") && !strings.HasPrefix(out, "already connected") {
		return &CmdError{Args: []string{"connect", addr}, Output: out}
	}
	return nil
}

// EnsureDevice starts the server, optionally dials connectAddr, and resolves
// exactly one online device for this client. With a serial set, that device
// must be online; without one there must be exactly one online device.
func (c *Client) EnsureDevice(ctx context.Context, connectAddr string) (Device, error) {
	if err := c.StartServer(ctx); err != nil {
		return Device{}, fmt.Errorf("start adb server: %w", err)
	}

	if connectAddr != "" {
		if err := c.Connect(ctx, connectAddr); err != nil {
			return Device{}, fmt.Errorf("connect %s: %w", connectAddr, err)
		}
		slog.Debug("adb connected", "addr", connectAddr)
	}

	devices, err := c.Devices(ctx)
	if err != nil {
		return Device{}, err
	}

	var online []Device
	for _, d := range devices {
		if !d.Online() {
			slog.Warn("adb device not usable", "serial", d.Serial, "state", d.State)
			continue
		}
		if c.serial != "" && d.Serial != c.serial {
			continue
		}
		online = append(online, d)
	}

	switch len(online) {
	case 0:
		if c.serial != "" {
			return Device{}, fmt.Errorf("device %s: %w", c.serial, ErrNoDevice)
		}
		return Device{}, ErrNoDevice
	case 1:
		return online[0], nil
	default:
		return Device{}, ErrMultipleDevices
	}
}

func parseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{Serial: fields[0], State: DeviceState(fields[1])}
		for _, kv := range fields[2:] {
			if v, ok := strings.CutPrefix(kv, "product:"); ok {
				d.Product = v
			}
			if v, ok := strings.CutPrefix(kv, "model:"); ok {
				d.Model = v
			}
		}
		devices = append(devices, d)
	}
	return devices
}
