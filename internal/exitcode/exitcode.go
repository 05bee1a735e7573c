// Package exitcode maps command failures to process exit statuses.
package exitcode

import (
	"errors"
	"fmt"
)

const (
	Success           = 0
	Error             = 1
	MissingCredential = 2
	Cancelled         = 130 // 128 + SIGINT
)

// ExitError asks cmd.Execute to exit with Code. A non-empty Message is
// printed to stderr first.
type ExitError struct {
	Code    int
	Message string
}

func (e ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

// NoCredential is returned after the missing-key notice has been shown, so
// msg is usually empty.
func NoCredential(msg string) ExitError { return ExitError{Code: MissingCredential, Message: msg} }

// Cancel reports an interrupted command.
func Cancel() ExitError { return ExitError{Code: Cancelled, Message: "cancelled"} }

// Code returns the status for err: 0 for nil, the carried code for an
// ExitError anywhere in the chain, 1 otherwise.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return Error
}
