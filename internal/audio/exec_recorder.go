package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
)

const (
	// probeWindow is how long Start watches a freshly spawned capture
	// process for an immediate failure (denied or missing device).
	probeWindow = 300 * time.Millisecond

	// stopGrace is how long Stop waits after an interrupt before killing.
	stopGrace = 2 * time.Second

	// waitDelay bounds how long Wait blocks on the process's pipes after
	// a kill.
	waitDelay = 10 * time.Second

	// readChunkSize is the capture accumulation chunk size.
	readChunkSize = 4096
)

// ExecRecorder captures audio by spawning an external recording process and
// accumulating its stdout. Encoding negotiation happens once per Start: the
// first preference whose binary is on PATH wins.
type ExecRecorder struct {
	formats   []Format
	lookPath  func(string) (string, error)
	probe     time.Duration
	waitDelay time.Duration

	mu     sync.Mutex
	denied bool // microphone permission denied earlier in this process
}

// ExecRecorderOpts holds parameters for creating an ExecRecorder.
type ExecRecorderOpts struct {
	Formats   []Format                     // defaults to DefaultFormats
	LookPath  func(string) (string, error) // defaults to exec.LookPath
	Probe     time.Duration                // defaults to probeWindow
	WaitDelay time.Duration                // defaults to waitDelay
}

// NewExecRecorder creates an ExecRecorder.
func NewExecRecorder(opts ExecRecorderOpts) *ExecRecorder {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	probe := opts.Probe
	if probe <= 0 {
		probe = probeWindow
	}
	delay := opts.WaitDelay
	if delay <= 0 {
		delay = waitDelay
	}
	return &ExecRecorder{formats: formats, lookPath: lookPath, probe: probe, waitDelay: delay}
}

// negotiate returns the first preference whose binary is installed.
func (r *ExecRecorder) negotiate() (Format, string, error) {
	var missing []string
	for _, f := range r.formats {
		path, err := r.lookPath(f.Binary)
		if err == nil {
			return f, path, nil
		}
		missing = append(missing, f.Binary)
	}
	return Format{}, "", &chaterr.MediaError{
		Kind:   chaterr.MediaUnsupported,
		Detail: "no capture program found (tried " + strings.Join(missing, ", ") + ")",
	}
}

// Start negotiates an encoding and spawns the capture process. A permission
// denial observed earlier in this process fails fast without spawning again.
func (r *ExecRecorder) Start(ctx context.Context) (Capture, error) {
	r.mu.Lock()
	denied := r.denied
	r.mu.Unlock()
	if denied {
		return nil, &chaterr.MediaError{
			Kind:   chaterr.MediaPermissionDenied,
			Detail: "microphone access was denied; restart the widget to retry",
		}
	}

	format, path, err := r.negotiate()
	if err != nil {
		return nil, err
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, path, format.Args...)

	// After a kill, Wait must not hang on pipe copiers held open by an
	// orphaned descendant of the capture process.
	cmd.WaitDelay = r.waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("audio: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("audio: start %s: %w", format.Binary, err)
	}

	capture := &execCapture{
		recorder: r,
		format:   format,
		cmd:      cmd,
		cancel:   cancel,
		stderr:   &stderr,
		waitCh:   make(chan error, 1),
	}
	go capture.accumulate(stdout)
	go func() { capture.waitCh <- cmd.Wait() }()

	// Watch for an immediate exit: a capture process that dies inside the
	// probe window never had the device.
	select {
	case waitErr := <-capture.waitCh:
		capture.released = true
		cancel()
		return nil, r.classifyStartFailure(waitErr, stderr.String())
	case <-time.After(r.probe):
		return capture, nil
	}
}

// classifyStartFailure maps an immediate capture process exit to the media
// taxonomy, remembering permission denials.
func (r *ExecRecorder) classifyStartFailure(waitErr error, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "not permitted"):
		r.mu.Lock()
		r.denied = true
		r.mu.Unlock()
		return &chaterr.MediaError{
			Kind:   chaterr.MediaPermissionDenied,
			Detail: strings.TrimSpace(stderr),
		}
	case strings.Contains(lower, "no such") || strings.Contains(lower, "cannot find") ||
		strings.Contains(lower, "no soundcards"):
		return &chaterr.MediaError{
			Kind:   chaterr.MediaNoDevice,
			Detail: strings.TrimSpace(stderr),
		}
	default:
		detail := strings.TrimSpace(stderr)
		if detail == "" && waitErr != nil {
			detail = waitErr.Error()
		}
		return &chaterr.MediaError{Kind: chaterr.MediaNoDevice, Detail: detail}
	}
}

// execCapture is a live capture backed by a recording subprocess.
type execCapture struct {
	recorder *ExecRecorder
	format   Format
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	stderr   *bytes.Buffer
	waitCh   chan error

	mu       sync.Mutex
	buf      bytes.Buffer
	released bool
}

// accumulate reads encoded chunks from the process stdout until EOF.
func (c *execCapture) accumulate(stdout io.Reader) {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			c.mu.Lock()
			c.buf.Write(chunk[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stop interrupts the capture process, waits for it to exit, and assembles
// the recording. The process is killed and reaped on every path.
func (c *execCapture) Stop() (*Recording, error) {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil, fmt.Errorf("audio: capture already stopped")
	}
	c.released = true
	c.mu.Unlock()

	defer c.cancel()

	// Ask the encoder to finish cleanly so container trailers get written;
	// fall back to the context kill if it ignores the interrupt.
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(interruptSignal)
	}
	select {
	case <-c.waitCh:
	case <-time.After(stopGrace):
		c.cancel()
		<-c.waitCh
	}

	c.mu.Lock()
	data := make([]byte, c.buf.Len())
	copy(data, c.buf.Bytes())
	c.mu.Unlock()

	if len(data) == 0 {
		return nil, &chaterr.MediaError{Kind: chaterr.MediaEmptyRecording}
	}
	return &Recording{Data: data, Format: c.format}, nil
}
