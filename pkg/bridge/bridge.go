// Package bridge performs lifecycle operations on the Homebridge
// instance: restart and factory reset.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/setupcode"
)

// RestartDelay lets the HTTP response go out before the restart begins.
const RestartDelay = 500 * time.Millisecond

// RestartResult describes an accepted restart request.
type RestartResult struct {
	OK      bool   `json:"ok"`
	Command string `json:"command,omitempty"`
}

// Credentials are the bridge identity written by Reset.
type Credentials struct {
	Pin      string `json:"pin"`
	Username string `json:"username"`
}

// Manager restarts and resets the bridge described by a loaded config.json.
type Manager struct {
	mu          sync.Mutex
	hb          *config.Homebridge
	storagePath string
	encoder     *setupcode.Encoder

	delay       time.Duration
	runShell    func(ctx context.Context, command string) error
	restartUnit func(ctx context.Context, unit string) error
	signalSelf  func() error
}

// NewManager creates a manager. encoder may be nil; when set it follows
// the new username on reset.
func NewManager(hb *config.Homebridge, storagePath string, encoder *setupcode.Encoder) *Manager {
	return &Manager{
		hb:          hb,
		storagePath: storagePath,
		encoder:     encoder,
		delay:       RestartDelay,
		runShell:    runShell,
		restartUnit: restartUnit,
		signalSelf:  signalSelf,
	}
}

// Restart schedules a restart and returns at once. The configured restart
// command runs through the shell; otherwise a configured systemd unit is
// restarted; otherwise this process is sent SIGTERM so its supervisor
// brings both back up.
func (m *Manager) Restart() RestartResult {
	log.Info().Msg("Homebridge restart request received")

	ui := m.hb.UI
	time.AfterFunc(m.delay, func() {
		m.restart(context.Background(), ui)
	})

	return RestartResult{OK: true, Command: ui.Restart}
}

func (m *Manager) restart(ctx context.Context, ui config.UIConfig) {
	switch {
	case ui.Restart != "":
		log.Info().Str("command", ui.Restart).Msg("Executing restart command")
		if err := m.runShell(ctx, ui.Restart); err != nil {
			log.Error().Err(err).Msg("Restart command exited with an error. Failed to restart Homebridge.")
		}

	case ui.RestartUnit != "":
		log.Info().Str("unit", ui.RestartUnit).Msg("Restarting systemd unit")
		if err := m.restartUnit(ctx, ui.RestartUnit); err != nil {
			log.Error().Err(err).Str("unit", ui.RestartUnit).Msg("Failed to restart Homebridge unit")
		}

	default:
		log.Info().Msg("No restart command defined, killing process...")
		if err := m.signalSelf(); err != nil {
			log.Error().Err(err).Msg("Failed to signal process")
		}
	}
}

// Reset gives the bridge a new pin and username, saves config.json and
// removes the cached accessories and pairings so it pairs as a new bridge.
// Plugin configuration is kept.
func (m *Manager) Reset(ctx context.Context) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	pin, err := GeneratePin()
	if err != nil {
		return Credentials{}, err
	}
	username, err := GenerateUsername()
	if err != nil {
		return Credentials{}, err
	}

	log.Warn().Str("username", username).Msg("Homebridge Reset: New Username")
	log.Warn().Str("pin", pin).Msg("Homebridge Reset: New Pin")

	m.hb.SetCredentials(pin, username)
	if err := m.hb.Save(); err != nil {
		return Credentials{}, fmt.Errorf("failed to save config: %w", err)
	}

	for _, dir := range []string{"persist", "accessories"} {
		if err := os.RemoveAll(filepath.Join(m.storagePath, dir)); err != nil {
			return Credentials{}, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		log.Info().Str("dir", dir).Msg("Homebridge Reset: directory removed")
	}

	if m.encoder != nil {
		m.encoder.SetUsername(username)
	}

	return Credentials{Pin: pin, Username: username}, nil
}

func runShell(ctx context.Context, command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", command)
	}
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, out)
	}
	return err
}

func restartUnit(ctx context.Context, unit string) error {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, unit, "replace", ch); err != nil {
		return fmt.Errorf("systemd restart %s: %w", unit, err)
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("systemd restart %s: job result %q", unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func signalSelf() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return err
	}
	return nil
}
