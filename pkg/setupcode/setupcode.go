// Package setupcode builds the X-HM:// setup URI a HomeKit controller
// scans to pair with the bridge.
package setupcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

// ErrNoPairingInfo is returned when the bridge has not written its
// accessory info file yet.
var ErrNoPairingInfo = errors.New("no pairing info")

const (
	uriPrefix     = "X-HM://"
	payloadLength = 9

	// flagIP marks the accessory as supporting IP transport
	flagIP = 1 << 28
)

// Encode returns the setup URI for pincode (NNN-NN-NNN), the accessory
// category and the 4 character setup id.
func Encode(pincode string, category int, setupID string) (string, error) {
	digits := strings.ReplaceAll(pincode, "-", "")
	pin, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return "", fmt.Errorf("invalid pincode %q: %w", pincode, err)
	}
	if category < 0 {
		return "", fmt.Errorf("invalid category %d", category)
	}

	low := uint32(pin) | flagIP
	if category&1 != 0 {
		low |= 1 << 31
	}
	high := uint64(category >> 1)

	payload := strings.ToUpper(strconv.FormatUint(high<<32|uint64(low), 36))
	if len(payload) < payloadLength {
		payload = strings.Repeat("0", payloadLength-len(payload)) + payload
	}

	return uriPrefix + payload + setupID, nil
}

// AccessoryInfo is the subset of the bridge's persisted accessory info
// needed to build the setup code.
type AccessoryInfo struct {
	Pincode  string `json:"pincode"`
	Category int    `json:"category"`
	SetupID  string `json:"setupID"`
}

// InfoPath returns the accessory info file for the bridge username.
func InfoPath(storagePath, username string) string {
	id := strings.ReplaceAll(username, ":", "")
	return filepath.Join(storagePath, "persist", "AccessoryInfo."+id+".json")
}

// Encoder computes the bridge setup code once and caches it.
type Encoder struct {
	storagePath string
	path        atomic.Pointer[string]
	code        atomic.Pointer[cachedCode]
}

// cachedCode ties a computed code to the info file it was read from.
type cachedCode struct {
	path string
	code string
}

// NewEncoder creates an encoder reading the accessory info of the bridge
// identified by username under storagePath.
func NewEncoder(storagePath, username string) *Encoder {
	e := &Encoder{storagePath: storagePath}
	e.SetUsername(username)
	return e
}

// SetupCode returns the cached setup code, computing it on first use.
// A code cached for a previous username is never returned.
func (e *Encoder) SetupCode() (string, error) {
	path := *e.path.Load()
	if c := e.code.Load(); c != nil && c.path == path {
		return c.code, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoPairingInfo
		}
		return "", fmt.Errorf("failed to read accessory info: %w", err)
	}

	var info AccessoryInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("failed to parse accessory info: %w", err)
	}

	code, err := Encode(info.Pincode, info.Category, info.SetupID)
	if err != nil {
		return "", err
	}
	// SetUsername may have run while reading; keep the stale code out.
	if *e.path.Load() == path {
		e.code.Store(&cachedCode{path: path, code: code})
	}
	return code, nil
}

// SetUsername points the encoder at the bridge identified by username and
// drops the cached code.
func (e *Encoder) SetUsername(username string) {
	path := InfoPath(e.storagePath, username)
	e.path.Store(&path)
	e.code.Store(nil)
}
