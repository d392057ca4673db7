//go:build windows

package audio

import "os"

// interruptSignal asks the capture process to exit. Windows has no SIGINT
// delivery for unrelated processes, so Kill is used directly.
var interruptSignal = os.Kill
