//go:build !windows

package audio

import "syscall"

// interruptSignal asks the capture process to flush and exit.
var interruptSignal = syscall.SIGINT
