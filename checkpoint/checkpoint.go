// Package checkpoint decorates errors with the location they passed through,
// which results in something similar to a stacktrace for the FAT reader.
// Both the wrapped cause and the describing error stay reachable by errors.Is and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// From wraps err by a new checkpoint which records the caller.
// It returns nil if err == nil.
func From(err error) error {
	if err == nil || isSentinelEOF(err) {
		return err
	}

	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint for prev which is further described by err.
// Returns nil if prev == nil. This allows predefined sentinel errors:
//  var ErrReadDir = errors.New("could not read the directory")
//
//  func readDir() error {
//  	err := readSlot()
//  	return checkpoint.Wrap(err, ErrReadDir)
//  }
// The result satisfies errors.Is(result, ErrReadDir) and errors.Is(result, <cause of readSlot>).
func Wrap(prev, err error) error {
	if prev == nil || isSentinelEOF(prev) {
		return prev
	}

	return newCheckpoint(prev, err)
}

// Fields returns the location of the innermost checkpoint inside of err
// to be used as structured log fields. It returns nil if err carries no checkpoint.
func Fields(err error) logrus.Fields {
	var innermost *checkpoint
	for err != nil {
		if c, ok := err.(*checkpoint); ok {
			innermost = c
		}
		err = errors.Unwrap(err)
	}

	if innermost == nil || !innermost.callerOk {
		return nil
	}

	return logrus.Fields{
		"file": innermost.file,
		"line": innermost.line,
	}
}

// io.EOF must be returned as is, callers compare it directly.
// https://github.com/golang/go/issues/39155
func isSentinelEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(prev, err error) *checkpoint {
	// Skip newCheckpoint and the exported function.
	_, file, line, ok := runtime.Caller(2)

	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	// err describes the checkpoint, may be nil.
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func (c *checkpoint) location() string {
	if !c.callerOk {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", c.file, c.line)
}

func (c *checkpoint) Error() string {
	var b strings.Builder
	b.WriteString(c.location())
	b.WriteString(": ")
	if c.err != nil {
		b.WriteString(c.err.Error())
		b.WriteString(": ")
	}
	b.WriteString(c.prev.Error())
	return b.String()
}

func (c *checkpoint) Unwrap() error {
	return c.prev
}

func (c *checkpoint) Is(target error) bool {
	return c.err != nil && errors.Is(c.err, target)
}

func (c *checkpoint) As(target interface{}) bool {
	return c.err != nil && errors.As(c.err, target)
}
