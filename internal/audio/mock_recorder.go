package audio

import (
	"context"
	"sync"

	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
)

// MockRecorder implements Recorder for tests. Start returns a MockCapture
// yielding the configured data, or the configured error.
type MockRecorder struct {
	mu sync.Mutex

	StartErr error
	Data     []byte
	Format   Format
	StopErr  error

	starts int
}

// Starts returns how many times Start was called.
func (m *MockRecorder) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *MockRecorder) Start(ctx context.Context) (Capture, error) {
	m.mu.Lock()
	m.starts++
	m.mu.Unlock()
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	format := m.Format
	if format.Name == "" {
		format = Format{Name: "mock", MimeType: "audio/ogg", Extension: "ogg"}
	}
	return &MockCapture{data: m.Data, format: format, stopErr: m.StopErr}, nil
}

// MockCapture is the capture handle returned by MockRecorder.
type MockCapture struct {
	data    []byte
	format  Format
	stopErr error

	mu       sync.Mutex
	released bool
}

// Released reports whether Stop ran (the microphone-release analog).
func (c *MockCapture) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

func (c *MockCapture) Stop() (*Recording, error) {
	c.mu.Lock()
	c.released = true
	c.mu.Unlock()
	if c.stopErr != nil {
		return nil, c.stopErr
	}
	if len(c.data) == 0 {
		return nil, &chaterr.MediaError{Kind: chaterr.MediaEmptyRecording}
	}
	return &Recording{Data: c.data, Format: c.format}, nil
}
