// Package audio acquires voice recordings for the chat client. The real
// implementation shells out to an external capture program, negotiating the
// first available encoder from an ordered preference list. The microphone is
// a scoped hardware resource: every exit path from a capture, including
// errors, releases it.
package audio

import "context"

// Format describes one supported capture encoding, bound to the external
// program that produces it.
type Format struct {
	Name      string   // e.g. "ogg-opus"
	MimeType  string   // e.g. "audio/ogg"
	Extension string   // e.g. "ogg"
	Binary    string   // capture program looked up on PATH
	Args      []string // program arguments; encoded audio must go to stdout
}

// Recording is an assembled, encoded capture ready for upload.
type Recording struct {
	Data   []byte
	Format Format
}

// Capture is a live recording in progress. Stop assembles the recording and
// releases the microphone; it must be called exactly once.
type Capture interface {
	// Stop ends the capture and returns the assembled recording. A capture
	// with zero accumulated bytes fails with MediaError(empty_recording).
	// The microphone is released in all cases.
	Stop() (*Recording, error)
}

// Recorder starts captures. ExecRecorder is the real implementation;
// MockRecorder serves tests.
type Recorder interface {
	// Start verifies device capability and begins recording. A previously
	// denied microphone fails fast with MediaError(permission_denied)
	// without re-prompting.
	Start(ctx context.Context) (Capture, error)
}

// DefaultFormats is the encoding preference list, most preferred first.
// Negotiation picks the first entry whose capture binary is installed.
var DefaultFormats = []Format{
	{
		Name:      "ogg-opus",
		MimeType:  "audio/ogg",
		Extension: "ogg",
		Binary:    "ffmpeg",
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "alsa", "-i", "default",
			"-ac", "1", "-c:a", "libopus", "-f", "ogg", "pipe:1",
		},
	},
	{
		Name:      "wav-pcm",
		MimeType:  "audio/wav",
		Extension: "wav",
		Binary:    "arecord",
		Args:      []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-"},
	},
	{
		Name:      "wav-sox",
		MimeType:  "audio/wav",
		Extension: "wav",
		Binary:    "sox",
		Args:      []string{"-q", "-t", "alsa", "default", "-t", "wav", "-"},
	},
}
