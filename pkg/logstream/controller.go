package logstream

import (
	"encoding/json"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/session"
)

var (
	// ErrNotConfigured indicates no usable log source is configured
	ErrNotConfigured = errors.New("log source not configured")

	// ErrProcessExited indicates the log command stopped on its own
	ErrProcessExited = errors.New("log command exited")
)

// State is the lifecycle stage of a Controller.
type State int

const (
	StateIdle State = iota
	StateConfigured
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

const readBufferSize = 32 * 1024

// Controller streams one log command to one session.
type Controller struct {
	source Source
	dir    string
	goos   string
	start  Starter
	run    func(argv []string) error

	mu          sync.Mutex
	state       State
	argv        []string
	proc        Process
	unsubscribe func()
	logger      zerolog.Logger

	once sync.Once
}

// NewController creates a controller for source. The log command runs
// with dir as its working directory.
func NewController(source Source, dir string) *Controller {
	return &Controller{
		source: source,
		dir:    dir,
		goos:   runtime.GOOS,
		start:  StartPTY,
		run:    runCommand,
		logger: log.Logger,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Bind implements session.Binder.
func (c *Controller) Bind(s *session.Session) func() {
	c.logger = s.Logger().With().Str("controller", "log").Logger()

	argv := BuildCommand(c.source, c.goos)
	if argv == nil {
		c.logger.Warn().Err(ErrNotConfigured).Msg("Cannot stream logs")
		_ = s.Emit(session.EventStdout, notConfiguredNotice())
		return c.teardown
	}

	c.mu.Lock()
	c.state = StateConfigured
	c.argv = argv
	c.mu.Unlock()

	_ = s.Emit(session.EventStdout, startBanner(c.source.Method, argv))

	proc, err := c.start(argv, c.dir, s.Size())
	if err != nil {
		c.logger.Error().Err(err).Strs("argv", argv).Msg("Failed to start log command")
		_ = s.Emit(session.EventStdout, startFailure(argv, err))
		c.mu.Lock()
		c.state = StateTerminated
		c.mu.Unlock()
		return c.teardown
	}

	c.mu.Lock()
	c.proc = proc
	c.state = StateStreaming
	c.mu.Unlock()

	c.logger.Info().Strs("argv", argv).Int("pid", proc.Pid()).Msg("Log command started")

	unsubscribe := s.On(session.EventResize, c.handleResize)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	go c.stream(s, proc)

	return c.teardown
}

func (c *Controller) handleResize(data json.RawMessage) {
	var size session.Size
	if err := json.Unmarshal(data, &size); err != nil || size.Cols == 0 || size.Rows == 0 {
		return
	}

	c.mu.Lock()
	proc := c.proc
	streaming := c.state == StateStreaming
	c.mu.Unlock()

	if !streaming || proc == nil {
		return
	}
	if err := proc.Resize(size); err != nil {
		c.logger.Debug().Err(err).Msg("Resize failed")
	}
}

// stream forwards terminal output until the process exits.
func (c *Controller) stream(s *session.Session, proc Process) {
	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		n, err := proc.Read(buf)
		if n > 0 {
			chunk := append(pending, buf[:n]...)
			complete, rest := splitUTF8(chunk)
			pending = append([]byte(nil), rest...)
			if len(complete) > 0 {
				_ = s.Emit(session.EventStdout, string(complete))
			}
		}
		if err != nil {
			break
		}
	}
	if len(pending) > 0 {
		_ = s.Emit(session.EventStdout, string(pending))
	}

	code, err := proc.Wait()
	if err != nil {
		c.logger.Debug().Err(err).Msg("Wait on log command failed")
	}

	c.mu.Lock()
	killed := c.state == StateTerminated
	argv := c.argv
	c.mu.Unlock()

	if killed {
		return
	}

	c.logger.Warn().Err(ErrProcessExited).Int("code", code).Msg("Log command exited early")
	_ = s.Emit(session.EventStdout, exitDiagnostic(argv, code))
	c.terminate(true)
}

func (c *Controller) teardown() {
	c.terminate(false)
}

// terminate moves the controller to StateTerminated, detaches its
// listeners and, unless the process already exited, kills it.
func (c *Controller) terminate(exited bool) {
	c.once.Do(func() {
		c.mu.Lock()
		if c.state != StateIdle {
			c.state = StateTerminated
		}
		proc := c.proc
		unsubscribe := c.unsubscribe
		c.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		if proc == nil || exited {
			return
		}

		if err := proc.Kill(); err != nil {
			c.logger.Debug().Err(err).Msg("Kill log command failed")
		}

		if c.source.Sudo && c.goos != "windows" && proc.Pid() > 0 {
			argv := []string{"sudo", "-n", "kill", "-9", strconv.Itoa(proc.Pid())}
			go func() {
				if err := c.run(argv); err != nil {
					c.logger.Debug().Err(err).Msg("Elevated kill failed")
				}
			}()
		}

		c.logger.Info().Msg("Log command stopped")
	})
}

func runCommand(argv []string) error {
	return exec.Command(argv[0], argv[1:]...).Run()
}

// splitUTF8 splits b before a trailing incomplete UTF-8 sequence so a
// multi-byte character read across two chunks is not mangled.
func splitUTF8(b []byte) (complete, rest []byte) {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		start := len(b) - i
		if !utf8.RuneStart(b[start]) {
			continue
		}
		if utf8.FullRune(b[start:]) {
			return b, nil
		}
		return b[:start], b[start:]
	}
	return b, nil
}
