package logstream

import (
	"fmt"
	"strings"
)

// Log source methods
const (
	MethodFile    = "file"
	MethodSystemd = "systemd"
	MethodCustom  = "custom"
)

// DefaultSystemdService is the unit used when a systemd source names none.
const DefaultSystemdService = "homebridge"

// Source describes where the bridge logs come from.
type Source struct {
	Method  string `json:"method"`
	Path    string `json:"path,omitempty"`
	Service string `json:"service,omitempty"`
	Command string `json:"command,omitempty"`
	Sudo    bool   `json:"-"`
}

// BuildCommand returns the argv used to stream logs for src on the given
// GOOS, or nil when src is not usable.
//
// Custom commands are split on single spaces with no quoting support, so
// arguments containing spaces cannot be expressed.
func BuildCommand(src Source, goos string) []string {
	switch {
	case src.Method == MethodFile && src.Path != "":
		return fileCommand(src, goos)
	case src.Method == MethodSystemd:
		return systemdCommand(src)
	case src.Method == MethodCustom && src.Command != "":
		return customCommand(src, goos)
	default:
		return nil
	}
}

func customCommand(src Source, goos string) []string {
	command := strings.Split(src.Command, " ")
	if src.Sudo && goos != "windows" {
		command = elevate(command)
	}
	return command
}

func fileCommand(src Source, goos string) []string {
	if goos == "windows" {
		return []string{
			"powershell.exe",
			"-command",
			fmt.Sprintf("Get-Content -Path '%s' -Wait -Tail 200", src.Path),
		}
	}

	command := []string{"tail", "-n", "200", "-f", src.Path}
	if src.Sudo {
		command = elevate(command)
	}
	return command
}

func systemdCommand(src Source) []string {
	service := src.Service
	if service == "" {
		service = DefaultSystemdService
	}

	command := []string{"journalctl", "-o", "cat", "-n", "500", "-f", "-u", service}
	if src.Sudo {
		command = elevate(command)
	}
	return command
}

// elevate prefixes argv with a non-interactive sudo so a missing
// credential fails instead of prompting inside the terminal.
func elevate(argv []string) []string {
	return append([]string{"sudo", "-n"}, argv...)
}
