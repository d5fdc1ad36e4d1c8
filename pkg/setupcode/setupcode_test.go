package setupcode

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		pincode  string
		category int
		setupID  string
		want     string
	}{
		{"031-45-154", 2, "ABCD", "X-HM://0023ISYWYABCD"},
		{"031-45-154", 5, "7OSX", "X-HM://00522H1VM7OSX"},
		{"123-45-678", 1, "Z9Z9", "X-HM://00145Q53IZ9Z9"},
	}

	for _, tt := range tests {
		got, err := Encode(tt.pincode, tt.category, tt.setupID)
		if err != nil {
			t.Fatalf("Encode(%q, %d): %v", tt.pincode, tt.category, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%q, %d, %q) = %q, want %q", tt.pincode, tt.category, tt.setupID, got, tt.want)
		}
	}
}

func TestEncode_PayloadLength(t *testing.T) {
	for _, category := range []int{0, 1, 2, 5, 31} {
		got, err := Encode("000-00-001", category, "WXYZ")
		if err != nil {
			t.Fatal(err)
		}
		payload := got[len(uriPrefix) : len(got)-4]
		if len(payload) != payloadLength {
			t.Errorf("category %d: payload %q has %d chars, want %d", category, payload, len(payload), payloadLength)
		}
	}
}

func TestEncode_InvalidPincode(t *testing.T) {
	if _, err := Encode("abc-de-fgh", 2, "ABCD"); err == nil {
		t.Error("expected error for non-numeric pincode")
	}
}

func writeInfo(t *testing.T, dir, username, body string) {
	t.Helper()
	path := InfoPath(dir, username)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEncoder_SetupCode(t *testing.T) {
	dir := t.TempDir()
	writeInfo(t, dir, "0E:12:34:56:78:9A", `{"pincode": "031-45-154", "category": 2, "setupID": "ABCD", "displayName": "Homebridge"}`)

	enc := NewEncoder(dir, "0E:12:34:56:78:9A")
	code, err := enc.SetupCode()
	if err != nil {
		t.Fatalf("SetupCode: %v", err)
	}
	if code != "X-HM://0023ISYWYABCD" {
		t.Errorf("expected X-HM://0023ISYWYABCD, got %q", code)
	}

	// Cached value survives the file going away
	if err := os.RemoveAll(filepath.Join(dir, "persist")); err != nil {
		t.Fatal(err)
	}
	again, err := enc.SetupCode()
	if err != nil {
		t.Fatalf("second SetupCode: %v", err)
	}
	if again != code {
		t.Errorf("expected memoized %q, got %q", code, again)
	}

	writeInfo(t, dir, "AA:BB:CC:DD:EE:FF", `{"pincode": "123-45-678", "category": 1, "setupID": "Z9Z9"}`)
	enc.SetUsername("AA:BB:CC:DD:EE:FF")
	code, err = enc.SetupCode()
	if err != nil {
		t.Fatalf("SetupCode after username change: %v", err)
	}
	if code != "X-HM://00145Q53IZ9Z9" {
		t.Errorf("expected code for new username, got %q", code)
	}
}

func TestEncoder_IgnoresCodeForOtherUsername(t *testing.T) {
	dir := t.TempDir()
	writeInfo(t, dir, "AA:BB:CC:DD:EE:FF", `{"pincode": "123-45-678", "category": 1, "setupID": "Z9Z9"}`)

	enc := NewEncoder(dir, "AA:BB:CC:DD:EE:FF")

	// A code computed for the previous username landing after the switch.
	stale := InfoPath(dir, "0E:12:34:56:78:9A")
	enc.code.Store(&cachedCode{path: stale, code: "X-HM://0023ISYWYABCD"})

	code, err := enc.SetupCode()
	if err != nil {
		t.Fatalf("SetupCode: %v", err)
	}
	if code != "X-HM://00145Q53IZ9Z9" {
		t.Errorf("expected code for current username, got %q", code)
	}
	if c := enc.code.Load(); c == nil || c.path != InfoPath(dir, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("expected cache keyed to current info file, got %+v", c)
	}
}

func TestEncoder_ConcurrentUsernameChange(t *testing.T) {
	dir := t.TempDir()
	writeInfo(t, dir, "0E:12:34:56:78:9A", `{"pincode": "031-45-154", "category": 2, "setupID": "ABCD"}`)
	writeInfo(t, dir, "AA:BB:CC:DD:EE:FF", `{"pincode": "123-45-678", "category": 1, "setupID": "Z9Z9"}`)

	enc := NewEncoder(dir, "0E:12:34:56:78:9A")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = enc.SetupCode()
			}
		}()
	}
	enc.SetUsername("AA:BB:CC:DD:EE:FF")
	wg.Wait()

	code, err := enc.SetupCode()
	if err != nil {
		t.Fatalf("SetupCode: %v", err)
	}
	if code != "X-HM://00145Q53IZ9Z9" {
		t.Errorf("expected code for new username after concurrent use, got %q", code)
	}
}

func TestEncoder_MissingFile(t *testing.T) {
	enc := NewEncoder(t.TempDir(), "0E:12:34:56:78:9A")

	code, err := enc.SetupCode()
	if !errors.Is(err, ErrNoPairingInfo) {
		t.Errorf("expected ErrNoPairingInfo, got %v", err)
	}
	if code != "" {
		t.Errorf("expected empty code, got %q", code)
	}
}

func TestInfoPath(t *testing.T) {
	got := InfoPath("/var/lib/homebridge", "0E:12:34:56:78:9A")
	want := filepath.Join("/var/lib/homebridge", "persist", "AccessoryInfo.0E123456789A.json")
	if got != want {
		t.Errorf("InfoPath = %q, want %q", got, want)
	}
}
