//go:build windows

package main

import "os"

// shutdownSignals cancel long-running commands. On Windows only os.Interrupt
// (Ctrl+C) is supported; SIGTERM does not exist.
var shutdownSignals = []os.Signal{os.Interrupt}
