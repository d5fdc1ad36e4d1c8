package logstream

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urmzd/hbconsole/pkg/session"
	"github.com/urmzd/hbconsole/pkg/session/sessiontest"
)

type fakeProcess struct {
	r *io.PipeReader
	w *io.PipeWriter

	exit     chan int
	exitOnce sync.Once

	mu        sync.Mutex
	resizes   []session.Size
	kills     int
	resizeErr error
}

func newFakeProcess() *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{r: r, w: w, exit: make(chan int, 1)}
}

func (p *fakeProcess) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *fakeProcess) Pid() int                   { return 4242 }

func (p *fakeProcess) Resize(size session.Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizes = append(p.resizes, size)
	return p.resizeErr
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.Exit(-1)
	return nil
}

func (p *fakeProcess) Wait() (int, error) { return <-p.exit, nil }

func (p *fakeProcess) Exit(code int) {
	p.exitOnce.Do(func() {
		_ = p.w.Close()
		p.exit <- code
	})
}

func (p *fakeProcess) Kills() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

func (p *fakeProcess) Resizes() []session.Size {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]session.Size(nil), p.resizes...)
}

type harness struct {
	ctrl    *Controller
	proc    *fakeProcess
	tr      *sessiontest.Transport
	sess    *session.Session
	started chan []string
	killed  chan []string
	served  chan struct{}
}

func newHarness(t *testing.T, src Source) *harness {
	t.Helper()
	h := &harness{
		proc:    newFakeProcess(),
		tr:      sessiontest.New(),
		started: make(chan []string, 1),
		killed:  make(chan []string, 1),
		served:  make(chan struct{}),
	}

	h.ctrl = NewController(src, t.TempDir())
	h.ctrl.goos = "linux"
	h.ctrl.start = func(argv []string, dir string, size session.Size) (Process, error) {
		h.started <- argv
		return h.proc, nil
	}
	h.ctrl.run = func(argv []string) error {
		h.killed <- argv
		return nil
	}

	h.sess = session.New(h.tr, session.Size{Cols: 100, Rows: 30})
	h.sess.Attach(h.ctrl)
	go func() {
		h.sess.Serve(context.Background())
		close(h.served)
	}()
	t.Cleanup(func() { _ = h.sess.Close() })
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func countContaining(tr *sessiontest.Transport, substr string) int {
	n := 0
	for _, msg := range tr.Messages(session.EventStdout) {
		if strings.Contains(string(msg.Data), substr) {
			n++
		}
	}
	return n
}

func TestController_NotConfigured(t *testing.T) {
	h := newHarness(t, Source{})

	msgs := h.tr.WaitFor(t, session.EventStdout, 1, time.Second)
	if len(msgs) != 1 {
		t.Fatalf("stdout frames = %d, want 1", len(msgs))
	}
	if !strings.Contains(h.tr.Stdout(), "not configured correctly") {
		t.Errorf("notice missing from %q", h.tr.Stdout())
	}
	if got := h.ctrl.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}

	select {
	case argv := <-h.started:
		t.Errorf("process started unexpectedly: %q", argv)
	default:
	}

	_ = h.sess.Close()
	if got := h.ctrl.State(); got != StateIdle {
		t.Errorf("state after close = %v, want idle", got)
	}
}

func TestController_StreamsOutputInOrder(t *testing.T) {
	h := newHarness(t, Source{Method: MethodFile, Path: "/var/log/homebridge.log"})

	argv := <-h.started
	if argv[0] != "tail" {
		t.Errorf("argv[0] = %q, want tail", argv[0])
	}
	if got := h.ctrl.State(); got != StateStreaming {
		t.Errorf("state = %v, want streaming", got)
	}

	for _, chunk := range []string{"[10/16] first\r\n", "[10/16] second\r\n", "[10/16] third\r\n"} {
		if _, err := h.proc.w.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := "[10/16] first\r\n[10/16] second\r\n[10/16] third\r\n"
	waitFor(t, "log output", func() bool { return strings.HasSuffix(h.tr.Stdout(), want) })

	if !strings.Contains(h.tr.Stdout(), "CMD: tail -n 200 -f /var/log/homebridge.log") {
		t.Errorf("banner missing from %q", h.tr.Stdout())
	}
}

func TestController_SplitMultibyteCharacter(t *testing.T) {
	h := newHarness(t, Source{Method: MethodSystemd})
	<-h.started

	// "é" is 0xC3 0xA9.
	_, _ = h.proc.w.Write([]byte{'c', 'a', 'f', 0xC3})
	_, _ = h.proc.w.Write([]byte{0xA9, '\n'})

	waitFor(t, "joined character", func() bool { return strings.HasSuffix(h.tr.Stdout(), "café\n") })
}

func TestController_Resize(t *testing.T) {
	h := newHarness(t, Source{Method: MethodSystemd})
	<-h.started

	h.proc.resizeErr = errors.New("process gone")
	h.tr.Send(t, session.EventResize, session.Size{Cols: 132, Rows: 50})

	waitFor(t, "resize", func() bool { return len(h.proc.Resizes()) == 1 })
	if got := h.proc.Resizes()[0]; got != (session.Size{Cols: 132, Rows: 50}) {
		t.Errorf("resize = %+v, want 132x50", got)
	}
	if got := h.ctrl.State(); got != StateStreaming {
		t.Errorf("state after failed resize = %v, want streaming", got)
	}
}

func TestController_ProcessExitEmitsOneDiagnostic(t *testing.T) {
	h := newHarness(t, Source{Method: MethodCustom, Command: "tail -n 10 -f /var/log/x"})
	<-h.started

	h.proc.Exit(1)

	waitFor(t, "terminated", func() bool { return h.ctrl.State() == StateTerminated })
	waitFor(t, "diagnostic", func() bool { return countContaining(h.tr, "exited with code 1") == 1 })

	// The disconnect that follows must be harmless.
	h.tr.Send(t, session.EventDisconnect, nil)
	<-h.served
	_ = h.sess.Close()

	if n := countContaining(h.tr, "exited with code"); n != 1 {
		t.Errorf("diagnostics = %d, want 1", n)
	}
	if n := h.proc.Kills(); n != 0 {
		t.Errorf("kills after natural exit = %d, want 0", n)
	}
}

func TestController_DisconnectKillsProcess(t *testing.T) {
	h := newHarness(t, Source{Method: MethodSystemd})
	<-h.started

	h.tr.Disconnect()
	<-h.served

	waitFor(t, "kill", func() bool { return h.proc.Kills() == 1 })
	if got := h.ctrl.State(); got != StateTerminated {
		t.Errorf("state = %v, want terminated", got)
	}
	if n := countContaining(h.tr, "exited with code"); n != 0 {
		t.Errorf("diagnostics after disconnect = %d, want 0", n)
	}

	select {
	case argv := <-h.killed:
		t.Errorf("elevated kill without sudo: %q", argv)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestController_EndWithSudoRunsElevatedKill(t *testing.T) {
	h := newHarness(t, Source{Method: MethodSystemd, Sudo: true})
	argv := <-h.started
	if argv[0] != "sudo" {
		t.Errorf("argv[0] = %q, want sudo", argv[0])
	}

	h.tr.Send(t, session.EventEnd, nil)
	<-h.served

	select {
	case got := <-h.killed:
		want := "sudo -n kill -9 4242"
		if strings.Join(got, " ") != want {
			t.Errorf("elevated kill = %q, want %q", strings.Join(got, " "), want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("elevated kill not run")
	}
}

func TestController_StartFailure(t *testing.T) {
	tr := sessiontest.New()
	ctrl := NewController(Source{Method: MethodSystemd}, t.TempDir())
	ctrl.goos = "linux"
	ctrl.start = func([]string, string, session.Size) (Process, error) {
		return nil, errors.New("exec: \"journalctl\": executable file not found in $PATH")
	}

	s := session.New(tr, session.DefaultSize)
	s.Attach(ctrl)

	if got := ctrl.State(); got != StateTerminated {
		t.Errorf("state = %v, want terminated", got)
	}
	if !strings.Contains(tr.Stdout(), "could not be started") {
		t.Errorf("start failure missing from %q", tr.Stdout())
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestController_TeardownIdempotent(t *testing.T) {
	h := newHarness(t, Source{Method: MethodSystemd})
	<-h.started

	h.ctrl.teardown()
	h.ctrl.teardown()
	_ = h.sess.Close()

	if n := h.proc.Kills(); n != 1 {
		t.Errorf("kills = %d, want 1", n)
	}
}

func TestSplitUTF8(t *testing.T) {
	tests := []struct {
		in             []byte
		complete, rest string
	}{
		{[]byte("plain"), "plain", ""},
		{[]byte{'a', 0xC3}, "a", "\xC3"},
		{[]byte{'a', 0xE2, 0x82}, "a", "\xE2\x82"},
		{[]byte("a€"), "a€", ""},
		{nil, "", ""},
	}

	for _, tt := range tests {
		complete, rest := splitUTF8(tt.in)
		if string(complete) != tt.complete || string(rest) != tt.rest {
			t.Errorf("splitUTF8(%q) = %q, %q; want %q, %q", tt.in, complete, rest, tt.complete, tt.rest)
		}
	}
}

func TestStartPTY_Echo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("pty not supported on windows")
	}

	proc, err := StartPTY([]string{"echo", "hello from pty"}, os.TempDir(), session.DefaultSize)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	out, _ := io.ReadAll(proc)
	code, err := proc.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(string(out), "hello from pty") {
		t.Errorf("output = %q", out)
	}
	if err := proc.Kill(); err != nil {
		t.Errorf("Kill() after exit error = %v", err)
	}
}
