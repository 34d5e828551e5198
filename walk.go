package fattree

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/aligator/fattree/checkpoint"
)

// SkipDir can be returned by a WalkFunc. For a directory its content is skipped,
// for any other entry the remaining entries of the current directory are skipped.
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for each volume label, file and directory in on-disk order.
// depth is 0 for the entries of the directory the walk started in.
// A directory is passed before its content.
type WalkFunc func(depth int, entry *Entry) error

// Walk walks the whole tree starting at the root directory.
func (fs *Fs) Walk(fn WalkFunc) error {
	return fs.WalkFrom(fs.Root(), 0, fn)
}

// WalkFrom walks the tree below dir. Its entries are passed with the given depth.
// Any error other than SkipDir aborts the walk and is returned.
// A directory which points back to one of its ancestors aborts the walk with ErrCyclicDirectory.
func (fs *Fs) WalkFrom(dir *Entry, depth int, fn WalkFunc) error {
	if !dir.IsDir() {
		return checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	cluster := dir.FirstCluster()
	ancestors := map[uint32]struct{}{cluster: {}}
	return fs.walk(cluster, depth, ancestors, fn)
}

func (fs *Fs) walk(cluster uint32, depth int, ancestors map[uint32]struct{}, fn WalkFunc) error {
	log := fs.log.WithField("cluster", cluster)
	log.Debug("entering directory")
	defer log.Debug("leaving directory")

	dir := fs.OpenDir(cluster)
	for {
		entry, err := dir.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch entry.Kind {
		case KindVolumeLabel, KindFile:
			err := fn(depth, entry)
			if err == SkipDir {
				return nil
			}
			if err != nil {
				return err
			}

		case KindDirectory:
			err := fn(depth, entry)
			if err == SkipDir {
				continue
			}
			if err != nil {
				return err
			}

			if err := fs.descend(entry, depth+1, ancestors, fn); err != nil {
				return err
			}
		}
	}
}

func (fs *Fs) descend(entry *Entry, depth int, ancestors map[uint32]struct{}, fn WalkFunc) error {
	child := entry.FirstCluster()
	if child < 2 {
		return checkpoint.Wrap(fmt.Errorf("directory %q starts at cluster %d", entry.Name(), child), ErrInvalidCluster)
	}

	if _, ok := ancestors[child]; ok {
		return checkpoint.Wrap(fmt.Errorf("directory %q at cluster %d", entry.Name(), child), ErrCyclicDirectory)
	}

	ancestors[child] = struct{}{}
	defer delete(ancestors, child)

	return fs.walk(child, depth, ancestors, fn)
}
