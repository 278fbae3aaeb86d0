package privilege

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultShell = "su"

	// DefaultTimeout bounds every command run in the shell, including the
	// elevation check on open.
	DefaultTimeout = 10 * time.Second

	// marker terminates the output of every command so that the exit
	// status can be read back.
	marker = "__guardian_status"
)

// ShellOpener opens a long lived root shell and feeds it commands on stdin.
type ShellOpener struct {
	Path    string
	Args    []string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewShellOpener(path string, logger *slog.Logger, args ...string) *ShellOpener {
	if path == "" {
		path = DefaultShell
	}

	return &ShellOpener{
		Path:    path,
		Args:    args,
		Timeout: DefaultTimeout,
		Logger:  logger,
	}
}

func (o *ShellOpener) Open(ctx context.Context) (Session, error) {
	// The shell outlives the caller context; Close ends it.
	cmd := exec.Command(o.Path, o.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	s := &shellSession{
		cmd:     cmd,
		stdin:   stdin,
		pipe:    stdout,
		stdout:  bufio.NewScanner(stdout),
		timeout: o.Timeout,
		logger:  o.Logger,
	}

	// A shell that refused elevation exits before answering, one that
	// prompts for a password never answers.
	if err := s.run(ctx, "true"); err != nil {
		s.Close()

		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	return s, nil
}

type shellSession struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	pipe    io.ReadCloser
	stdout  *bufio.Scanner
	timeout time.Duration
	closed  bool
	broken  bool
	logger  *slog.Logger
}

func (s *shellSession) Kill(ctx context.Context, pid int32) error {
	return s.run(ctx, "kill -9 "+strconv.Itoa(int(pid)))
}

func (s *shellSession) Reboot(ctx context.Context) error {
	return s.run(ctx, "reboot")
}

// run writes one command and waits for its exit status. When ctx ends or
// the timeout passes first, the shell is killed and the session is unusable.
func (s *shellSession) run(ctx context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.broken {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- s.exchange(command)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.broken = true
		_ = s.cmd.Process.Kill()
		_ = s.stdin.Close()
		_ = s.pipe.Close()
		<-done

		return fmt.Errorf("%w: %s: %w", ErrCommand, command, ctx.Err())
	}
}

func (s *shellSession) exchange(command string) error {
	line := fmt.Sprintf("%s; echo %s $?\n", command, marker)
	if _, err := io.WriteString(s.stdin, line); err != nil {
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}

	for s.stdout.Scan() {
		text := s.stdout.Text()
		status, ok := strings.CutPrefix(text, marker+" ")
		if !ok {
			if s.logger != nil {
				s.logger.Debug("privileged shell output", slog.String("command", command), slog.String("output", text))
			}

			continue
		}
		if status != "0" {
			return fmt.Errorf("%w: %s exited with status %s", ErrCommand, command, status)
		}

		return nil
	}

	if err := s.stdout.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}

	return fmt.Errorf("%w: shell exited", ErrCommand)
}

func (s *shellSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if !s.broken {
		_, _ = io.WriteString(s.stdin, "exit\n")
	}
	_ = s.stdin.Close()

	// The shell exit status carries no information once commands have
	// reported their own status.
	_ = s.cmd.Wait()

	return nil
}
