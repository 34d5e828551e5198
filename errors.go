package fattree

import (
	"errors"
	"fmt"
	"syscall"
)

// These errors may occur while mounting or traversing a volume.
// All of them are fatal for the operation which returned them.
var (
	ErrNotOpenable     = errors.New("could not open the image")
	ErrTruncated       = errors.New("image is too short for the structure")
	ErrIO              = errors.New("could not read from the image")
	ErrInvalidGeometry = errors.New("invalid volume geometry")
	ErrNotFAT          = errors.New("no valid FAT filesystem")
	ErrInvalidCluster  = errors.New("invalid cluster number")
	ErrChainTooLong    = errors.New("cluster chain is longer than the volume")
	ErrCyclicDirectory = errors.New("directory is its own ancestor")
)

// ErrReadOnly is returned by every operation which would modify the volume.
// It satisfies errors.Is(err, syscall.EROFS).
var ErrReadOnly = fmt.Errorf("fattree is read-only: %w", syscall.EROFS)
