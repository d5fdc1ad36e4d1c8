package logstream

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/creack/pty"
	"github.com/urmzd/hbconsole/pkg/session"
)

// Process is a running log command attached to a pseudo-terminal.
// Reads return the terminal output.
type Process interface {
	io.Reader

	// Pid returns the operating system process id.
	Pid() int

	// Resize changes the terminal window size.
	Resize(size session.Size) error

	// Kill stops the process and releases the terminal.
	Kill() error

	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
}

// Starter spawns argv in dir under a terminal of the given size.
type Starter func(argv []string, dir string, size session.Size) (Process, error)

type ptyProcess struct {
	cmd    *exec.Cmd
	tty    *os.File
	exited atomic.Bool
}

// StartPTY runs argv attached to a new pseudo-terminal.
func StartPTY(argv []string, dir string, size session.Size) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm-color")

	tty, err := pty.StartWithSize(cmd, winsize(size))
	if err != nil {
		return nil, err
	}

	return &ptyProcess{cmd: cmd, tty: tty}, nil
}

func (p *ptyProcess) Read(b []byte) (int, error) {
	return p.tty.Read(b)
}

func (p *ptyProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *ptyProcess) Resize(size session.Size) error {
	if p.exited.Load() {
		return os.ErrProcessDone
	}
	return pty.Setsize(p.tty, winsize(size))
}

func (p *ptyProcess) Kill() error {
	var err error
	if !p.exited.Load() {
		err = killProcessGroup(p.cmd.Process)
	}
	if cerr := p.tty.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = cerr
	}
	return err
}

func (p *ptyProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	p.exited.Store(true)
	_ = p.tty.Close()

	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return code, nil
	}
	return code, err
}

func winsize(size session.Size) *pty.Winsize {
	return &pty.Winsize{Rows: size.Rows, Cols: size.Cols}
}
