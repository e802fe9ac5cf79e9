package config

import (
	"fmt"
	"time"
)

// IOError reports a config file that is missing, unreadable, or whose
// metadata cannot be read.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s config %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports content that is malformed or does not fit the target
// type. Validation is set when decoding succeeded but validation rejected
// the result.
type DecodeError struct {
	Path       string
	Format     string
	Validation bool
	Err        error
}

func (e *DecodeError) Error() string {
	if e.Validation {
		return fmt.Sprintf("validating config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parsing %s config %s: %v", e.Format, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClockError reports a modification time earlier than the Unix epoch.
type ClockError struct {
	Path    string
	ModTime time.Time
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("config %s: modification time %s predates the unix epoch", e.Path, e.ModTime.Format(time.RFC3339))
}
