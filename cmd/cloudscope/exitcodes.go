package main

import (
	"errors"

	"github.com/matsen/cloudscope/internal/config"
	"github.com/matsen/cloudscope/internal/topology"
)

// Exit codes
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError  = 2 // Configuration could not be loaded or is out of range
	ExitInvalidInput = 3 // Generation parameters or an input chunk stream were rejected
)

// errInvalidInput marks malformed input files (e.g. a chunk stream out of order).
var errInvalidInput = errors.New("invalid input")

// exitCodeFor maps a command error to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errConfig), errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError
	case topology.IsInvalidInput(err), errors.Is(err, errInvalidInput):
		return ExitInvalidInput
	default:
		return ExitError
	}
}
