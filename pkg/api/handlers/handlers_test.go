package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/api/types"
	"github.com/urmzd/hbconsole/pkg/bridge"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/db"
	"github.com/urmzd/hbconsole/pkg/hap"
	"github.com/urmzd/hbconsole/pkg/logstream"
	"github.com/urmzd/hbconsole/pkg/session"
	"github.com/urmzd/hbconsole/pkg/setupcode"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClient struct {
	services []accessory.Service
	err      error
}

func (s *stubClient) ListServices(ctx context.Context) ([]accessory.Service, error) {
	return s.services, s.err
}

func (s *stubClient) SetCharacteristic(ctx context.Context, svc *accessory.Service, iid int, value any) error {
	return s.err
}

func (s *stubClient) RefreshCharacteristics(ctx context.Context, svc *accessory.Service) error {
	return nil
}

type stubManager struct {
	restarts int
	resetErr error
}

func (m *stubManager) Restart() bridge.RestartResult {
	m.restarts++
	return bridge.RestartResult{OK: true, Command: "systemctl restart homebridge"}
}

func (m *stubManager) Reset(ctx context.Context) (bridge.Credentials, error) {
	if m.resetErr != nil {
		return bridge.Credentials{}, m.resetErr
	}
	return bridge.Credentials{Pin: "111-22-333", Username: "AA:BB:CC:DD:EE:FF"}, nil
}

type stubCoder struct {
	code string
	err  error
}

func (s stubCoder) SetupCode() (string, error) { return s.code, s.err }

var lamp = accessory.Service{
	AID:         2,
	IID:         10,
	Type:        "Lightbulb",
	ServiceName: "Desk Lamp",
	Values:      map[string]any{"On": true},
	UniqueID:    "lamp",
}

func openLayouts(t *testing.T) db.LayoutStore {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return database.Layouts()
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantBridge string
	}{
		{"reachable", nil, http.StatusOK, "reachable"},
		{"not configured", accessory.ErrNotConfigured, http.StatusServiceUnavailable, "not_configured"},
		{"unauthorized", accessory.ErrAuthRequired, http.StatusServiceUnavailable, "unauthorized"},
		{"unreachable", accessory.ErrUnavailable, http.StatusServiceUnavailable, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&stubClient{err: tt.err}, time.Second)
			r := gin.New()
			r.GET("/health", h.Health)

			w := do(r, http.MethodGet, "/health", "")
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var body types.HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Bridge != tt.wantBridge {
				t.Errorf("bridge = %q, want %q", body.Bridge, tt.wantBridge)
			}
		})
	}
}

func newAccessoriesRouter(t *testing.T, client accessory.Client) *gin.Engine {
	t.Helper()
	h := NewAccessoriesHandler(client, openLayouts(t), schema.NewValidator(), time.Second)
	r := gin.New()
	r.GET("/accessories", h.ListAccessories)
	r.GET("/accessories/layout/:user", h.GetLayout)
	r.PUT("/accessories/layout/:user", h.SaveLayout)
	return r
}

func TestListAccessories(t *testing.T) {
	r := newAccessoriesRouter(t, &stubClient{services: []accessory.Service{lamp}})

	w := do(r, http.MethodGet, "/accessories", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var body types.ListAccessoriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Accessories[0].ServiceName != "Desk Lamp" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestListAccessories_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{accessory.ErrNotConfigured, http.StatusServiceUnavailable},
		{accessory.ErrAuthRequired, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		r := newAccessoriesRouter(t, &stubClient{err: tt.err})
		w := do(r, http.MethodGet, "/accessories", "")
		if w.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestListAccessories_StalledBridgeTimesOut(t *testing.T) {
	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(bridge.Close)

	client := hap.NewWithBaseURL(bridge.URL, hap.Config{Pin: "031-45-154"}, nil)
	h := NewAccessoriesHandler(client, openLayouts(t), schema.NewValidator(), 50*time.Millisecond)
	r := gin.New()
	r.GET("/accessories", h.ListAccessories)

	w := do(r, http.MethodGet, "/accessories", "")
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusGatewayTimeout, w.Body.String())
	}
}

func TestLayout_DefaultThenSaved(t *testing.T) {
	r := newAccessoriesRouter(t, &stubClient{})

	w := do(r, http.MethodGet, "/accessories/layout/admin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `[{"name":"Default Room","services":[]}]` {
		t.Errorf("unexpected default layout %s", w.Body.String())
	}

	w = do(r, http.MethodPut, "/accessories/layout/admin", `[{"name": "Kitchen", "services": ["lamp"]}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body: %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/accessories/layout/admin", "")
	var layout db.Layout
	if err := json.Unmarshal(w.Body.Bytes(), &layout); err != nil {
		t.Fatal(err)
	}
	if len(layout) != 1 || layout[0].Name != "Kitchen" || layout[0].Services[0] != "lamp" {
		t.Errorf("unexpected saved layout %+v", layout)
	}

	w = do(r, http.MethodGet, "/accessories/layout/guest", "")
	if !strings.Contains(w.Body.String(), "Default Room") {
		t.Errorf("other users should still get the default layout, got %s", w.Body.String())
	}
}

func TestLayout_Invalid(t *testing.T) {
	r := newAccessoriesRouter(t, &stubClient{})

	for _, body := range []string{
		`not json`,
		`{"name": "Kitchen"}`,
		`[{"name": "", "services": []}]`,
		`[{"name": "Kitchen", "services": [1, 2]}]`,
	} {
		w := do(r, http.MethodPut, "/accessories/layout/admin", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func newServerRouter(t *testing.T, manager BridgeManager, coder SetupCoder) *gin.Engine {
	t.Helper()
	hb, err := config.Parse([]byte(`{"bridge": {"username": "0E:12:34:56:78:9A", "pin": "031-45-154", "port": 51826}}`))
	if err != nil {
		t.Fatal(err)
	}
	h := NewServerHandler(manager, coder, hb)
	r := gin.New()
	r.PUT("/server/restart", h.Restart)
	r.PUT("/server/reset", h.Reset)
	r.GET("/server/pairing", h.Pairing)
	return r
}

func TestRestart(t *testing.T) {
	manager := &stubManager{}
	r := newServerRouter(t, manager, stubCoder{})

	w := do(r, http.MethodPut, "/server/restart", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	var body types.RestartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || body.Command != "systemctl restart homebridge" {
		t.Errorf("unexpected body %+v", body)
	}
	if manager.restarts != 1 {
		t.Errorf("expected 1 restart, got %d", manager.restarts)
	}
}

func TestReset(t *testing.T) {
	r := newServerRouter(t, &stubManager{}, stubCoder{})
	w := do(r, http.MethodPut, "/server/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body types.ResetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Username != "AA:BB:CC:DD:EE:FF" || body.Pin != "111-22-333" {
		t.Errorf("unexpected body %+v", body)
	}

	r = newServerRouter(t, &stubManager{resetErr: os.ErrPermission}, stubCoder{})
	w = do(r, http.MethodPut, "/server/reset", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("failed reset status = %d, want 500", w.Code)
	}
}

func TestPairing(t *testing.T) {
	r := newServerRouter(t, &stubManager{}, stubCoder{code: "X-HM://0023ISYWYABCD"})
	w := do(r, http.MethodGet, "/server/pairing", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body types.PairingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.SetupCode != "X-HM://0023ISYWYABCD" || body.Pin != "031-45-154" {
		t.Errorf("unexpected body %+v", body)
	}

	r = newServerRouter(t, &stubManager{}, stubCoder{err: setupcode.ErrNoPairingInfo})
	w = do(r, http.MethodGet, "/server/pairing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing pairing status = %d, want 404", w.Code)
	}
}

func dialSession(t *testing.T, h *SocketHandler, path string) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/ws/log", h.Log)
	r.GET("/ws/accessories", h.Accessories)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, event string) session.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg session.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if msg.Event == event {
			return msg
		}
	}
}

func TestSocket_Accessories(t *testing.T) {
	h := NewSocketHandler(logstream.Source{}, t.TempDir(), &stubClient{services: []accessory.Service{lamp}}, schema.NewValidator(), accessory.Options{PollInterval: time.Hour})
	conn := dialSession(t, h, "/ws/accessories")

	msg := readEvent(t, conn, session.EventAccessoriesData)
	var services []accessory.Service
	if err := json.Unmarshal(msg.Data, &services); err != nil {
		t.Fatal(err)
	}
	if len(services) != 1 || services[0].UniqueID != "lamp" {
		t.Errorf("unexpected snapshot %s", msg.Data)
	}

	if err := conn.WriteJSON(session.Message{Event: session.EventEnd}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var next session.Message
		if err := conn.ReadJSON(&next); err != nil {
			break
		}
	}
}

func TestSocket_LogNotConfigured(t *testing.T) {
	h := NewSocketHandler(logstream.Source{}, t.TempDir(), &stubClient{}, schema.NewValidator(), accessory.Options{})
	conn := dialSession(t, h, "/ws/log?cols=120&rows=40")

	msg := readEvent(t, conn, session.EventStdout)
	var text string
	if err := json.Unmarshal(msg.Data, &text); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "not configured") {
		t.Errorf("expected not configured notice, got %q", text)
	}
}
