// Package procrunner implements the synchronous-from-the-caller wrapper
// over asynchronous child-process I/O: a background event-loop
// goroutine is the sole owner of every spawned child, while handlers on
// the calling goroutine block on a one-shot channel until the child
// exits or is killed.
package procrunner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/jbenden/deployer/internal/result"
)

// killGrace is how long the runner waits, after a graceful SIGTERM,
// for a timed-out child to exit on its own before escalating to
// SIGKILL.
const killGrace = 2 * time.Second

// Options configures a single Run call.
type Options struct {
	Dir           string
	Env           []string
	Timeout       time.Duration
	Silent        bool // buffer output to a temp file, dump only on failure
	CaptureStdout bool // additionally collect full stdout text into Result.Stdout
}

// Runner owns the background event loop and the logger every spawned
// child's output is streamed through.
type Runner struct {
	logger zerolog.Logger
	work   chan func()
	done   chan struct{}
}

// New starts the background event-loop goroutine and returns a Runner
// ready to accept Run calls. Call Close when the pipeline finishes.
func New(logger zerolog.Logger) *Runner {
	r := &Runner{
		logger: logger,
		work:   make(chan func()),
		done:   make(chan struct{}),
	}
	go r.eventLoop()
	return r
}

func (r *Runner) eventLoop() {
	defer close(r.done)
	for fn := range r.work {
		fn()
	}
}

// Close stops the event loop, waiting for any in-flight spawn to
// finish first.
func (r *Runner) Close() {
	close(r.work)
	<-r.done
}

type runOutcome struct {
	res result.Result
	err error
}

// Run spawns argv and blocks the calling goroutine until it exits, is
// killed by a timeout, or fails to start. The actual I/O is owned by
// the background event loop; this call posts one unit of work to it
// and waits on a dedicated one-shot channel.
func (r *Runner) Run(ctx context.Context, argv []string, opts Options) (result.Result, error) {
	if len(argv) == 0 {
		return result.Failure(), errors.New("procrunner: empty argv")
	}
	signal := make(chan runOutcome, 1)
	r.work <- func() {
		signal <- r.spawn(ctx, argv, opts)
	}
	out := <-signal
	return out.res, out.err
}

func (r *Runner) spawn(ctx context.Context, argv []string, opts Options) runOutcome {
	id := ulid.Make().String()

	cmd := exec.Command(argv[0], argv[1:]...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if opts.Env != nil {
		cmd.Env = opts.Env
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return runOutcome{result.Failure(), err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return runOutcome{result.Failure(), err}
	}

	var bufFile *os.File
	if opts.Silent {
		bufFile, err = os.CreateTemp("", "deployer-"+id+"-*.log")
		if err != nil {
			return runOutcome{result.Failure(), err}
		}
		defer os.Remove(bufFile.Name())
		defer bufFile.Close()
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || os.IsNotExist(err) {
			r.logger.Error().Str("call_id", id).Str("argv0", argv[0]).Msg("executable not found")
			return runOutcome{result.Failure(), &ProcessTerminatedError{ExitCode: 1, Reason: err.Error()}}
		}
		return runOutcome{result.Failure(), err}
	}

	var stdoutCapture strings.Builder
	linesDone := make(chan struct{}, 2)
	go r.streamLines(stdoutPipe, false, id, opts, bufFile, &stdoutCapture, linesDone)
	go r.streamLines(stderrPipe, true, id, opts, bufFile, nil, linesDone)

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case werr := <-waitErr:
		<-linesDone
		<-linesDone
		if werr != nil {
			var exitErr *exec.ExitError
			if errors.As(werr, &exitErr) {
				r.logger.Error().Str("call_id", id).Int("exit_code", exitErr.ExitCode()).Msg("process exited non-zero")
				if opts.Silent {
					r.flushSilentBuffer(bufFile)
				}
				return runOutcome{result.Failure(), nil}
			}
			return runOutcome{result.Failure(), werr}
		}
		res := result.Success()
		if opts.CaptureStdout {
			res.Stdout = stdoutCapture.String()
		}
		return runOutcome{res, nil}
	case <-timeoutCh:
		r.killWithEscalation(cmd)
		<-waitErr
		<-linesDone
		<-linesDone
		if opts.Silent {
			r.flushSilentBuffer(bufFile)
		}
		r.logger.Error().Str("call_id", id).Dur("timeout", opts.Timeout).Msg("process timed out")
		return runOutcome{result.Failure(), &ProcessTerminatedError{ExitCode: 124, Reason: "timed out"}}
	case <-ctx.Done():
		r.killWithEscalation(cmd)
		<-waitErr
		<-linesDone
		<-linesDone
		if opts.Silent {
			r.flushSilentBuffer(bufFile)
		}
		return runOutcome{result.Failure(), &ProcessTerminatedError{ExitCode: 124, Reason: ctx.Err().Error()}}
	}
}

// streamLines reads one pipe line-by-line, either logging each line
// live (with the "| "/"! " prefix mandated by the spec) or buffering it
// into the silent-mode temp file, and optionally mirrors stdout into a
// capture buffer for callers that need the full output text.
func (r *Runner) streamLines(pipe io.Reader, isStderr bool, id string, opts Options, bufFile *os.File, capture *strings.Builder, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	prefix := "| "
	if isStderr {
		prefix = "! "
	}
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if capture != nil {
			capture.WriteString(line)
			capture.WriteString("\n")
		}
		if opts.Silent {
			if bufFile != nil {
				bufFile.WriteString(prefix + line + "\n")
			}
			continue
		}
		if isStderr {
			r.logger.Warn().Str("call_id", id).Msg(prefix + line)
		} else {
			r.logger.Info().Str("call_id", id).Msg(prefix + line)
		}
	}
}

// flushSilentBuffer dumps a silent-mode buffer file's content into the
// log, one record per buffered line, called only on failure.
func (r *Runner) flushSilentBuffer(bufFile *os.File) {
	if bufFile == nil {
		return
	}
	if _, err := bufFile.Seek(0, io.SeekStart); err != nil {
		return
	}
	scanner := bufio.NewScanner(bufFile)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "! ") {
			r.logger.Warn().Msg(line)
		} else {
			r.logger.Info().Msg(line)
		}
	}
}

// killWithEscalation sends a graceful termination signal, waits up to
// killGrace for the child to exit on its own (polling liveness the way
// an external supervisor would), then issues a hard kill.
func (r *Runner) killWithEscalation(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)

	deadline := time.Now().Add(killGrace)
	for time.Now().Before(deadline) {
		if !pidAlive(cmd.Process.Pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = cmd.Process.Kill()
}
