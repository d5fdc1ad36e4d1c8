// Package config loads the service settings and the bridge's config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/tidwall/jsonc"
	"github.com/urmzd/hbconsole/pkg/logstream"
)

// ErrNoBridgePort is returned when config.json has no bridge.port.
var ErrNoBridgePort = errors.New("config.json does not define a port under bridge.port")

// UIPlatform is the platform entry holding this service's settings.
const UIPlatform = "config"

// DefaultPort is the listen port when neither settings nor config.json
// name one.
const DefaultPort = 8080

// Bridge is the bridge section of config.json.
type Bridge struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Port     int    `json:"port"`
	Pin      string `json:"pin"`
}

// LogConfig selects how logs are read for the log viewer.
type LogConfig struct {
	Method  string `json:"method"`
	Path    string `json:"path,omitempty"`
	Service string `json:"service,omitempty"`
	Command string `json:"command,omitempty"`
}

// SSLConfig holds the TLS key pair paths.
type SSLConfig struct {
	Key        string `json:"key,omitempty"`
	Cert       string `json:"cert,omitempty"`
	Pfx        string `json:"pfx,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

// Enabled reports whether a key pair is configured.
func (s *SSLConfig) Enabled() bool {
	return s != nil && s.Key != "" && s.Cert != ""
}

// UIConfig is the platform "config" entry of config.json.
type UIConfig struct {
	Platform    string     `json:"platform"`
	Name        string     `json:"name,omitempty"`
	Port        int        `json:"port,omitempty"`
	Host        string     `json:"host,omitempty"`
	Restart     string     `json:"restart,omitempty"`
	RestartUnit string     `json:"restartUnit,omitempty"`
	Sudo        bool       `json:"sudo,omitempty"`
	Log         *LogConfig `json:"log,omitempty"`
	SSL         *SSLConfig `json:"ssl,omitempty"`
}

// LogSource derives the log viewer source. A missing log section yields a
// zero Source, which builds no command.
func (u UIConfig) LogSource() logstream.Source {
	if u.Log == nil {
		return logstream.Source{}
	}
	return logstream.Source{
		Method:  u.Log.Method,
		Path:    u.Log.Path,
		Service: u.Log.Service,
		Command: u.Log.Command,
		Sudo:    u.Sudo,
	}
}

// Homebridge is a loaded config.json. Sections this service does not
// model are kept as-is and written back by Save.
type Homebridge struct {
	Bridge Bridge
	UI     UIConfig

	path string
	mu   sync.RWMutex
	raw  map[string]any
}

type homebridgeFile struct {
	Bridge    Bridge            `json:"bridge"`
	Platforms []json.RawMessage `json:"platforms"`
}

// Load reads config.json at path. Comments and trailing commas are
// accepted.
func Load(path string) (*Homebridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	h, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	h.path = path
	return h, nil
}

// Parse decodes config.json content.
func Parse(data []byte) (*Homebridge, error) {
	stripped := jsonc.ToJSON(data)

	var file homebridgeFile
	if err := json.Unmarshal(stripped, &file); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(stripped, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if raw == nil {
		raw = make(map[string]any)
	}
	h := &Homebridge{Bridge: file.Bridge, raw: raw}

	for _, p := range file.Platforms {
		var head struct {
			Platform string `json:"platform"`
		}
		if err := json.Unmarshal(p, &head); err != nil || head.Platform != UIPlatform {
			continue
		}
		if err := json.Unmarshal(p, &h.UI); err != nil {
			return nil, fmt.Errorf("parsing %q platform: %w", UIPlatform, err)
		}
		break
	}

	return h, nil
}

// Path returns the file the config was loaded from.
func (h *Homebridge) Path() string {
	return h.path
}

// BridgePort returns bridge.port, or ErrNoBridgePort.
func (h *Homebridge) BridgePort() (int, error) {
	if h.Bridge.Port <= 0 {
		return 0, ErrNoBridgePort
	}
	return h.Bridge.Port, nil
}

// Credentials returns the bridge pin and username.
func (h *Homebridge) Credentials() (pin, username string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Bridge.Pin, h.Bridge.Username
}

// SetCredentials replaces the bridge pin and username.
func (h *Homebridge) SetCredentials(pin, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Bridge.Pin = pin
	h.Bridge.Username = username

	bridge, _ := h.raw["bridge"].(map[string]any)
	if bridge == nil {
		bridge = make(map[string]any)
		h.raw["bridge"] = bridge
	}
	bridge["pin"] = pin
	bridge["username"] = username
}

// Save writes the config back to the file it was loaded from, indented
// with four spaces. Comments in the original file are not preserved.
func (h *Homebridge) Save() error {
	if h.path == "" {
		return errors.New("config has no file path")
	}

	h.mu.RLock()
	data, err := json.MarshalIndent(h.raw, "", "    ")
	h.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	info, err := os.Stat(h.path)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode().Perm()
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), mode); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// ListenAddress returns the address to serve on. Precedence: settings,
// then the UI platform entry, then defaults. The default host is "::" when
// the machine has an IPv6 address, otherwise "0.0.0.0".
func ListenAddress(s Settings, ui UIConfig) string {
	host := s.Host
	if host == "" {
		host = ui.Host
	}
	if host == "" {
		host = defaultHost(hasIPv6())
	}

	port := s.Port
	if port == 0 {
		port = ui.Port
	}
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func defaultHost(ipv6 bool) string {
	if ipv6 {
		return "::"
	}
	return "0.0.0.0"
}

func hasIPv6() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if ok && ipNet.IP.To4() == nil && ipNet.IP.To16() != nil {
			return true
		}
	}
	return false
}
