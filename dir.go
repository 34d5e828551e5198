package fattree

import (
	"fmt"
	"io"

	"github.com/aligator/fattree/checkpoint"
)

type dirState uint8

const (
	dirScanning dirState = iota
	// dirEnd means the end of directory entry was read.
	dirEnd
	// dirChainEnd means the cluster chain ran out before the end of directory entry.
	dirChainEnd
	dirFailed
)

// DirReader enumerates the entries of one directory in on-disk order.
// It owns its position, so several readers can be used at the same time,
// for example one per level of a recursive walk.
type DirReader struct {
	fs     *Fs
	chain  *clusterChain
	offset int64

	state dirState
	err   error

	name nameBuffer
	slot [SlotSize]byte
}

// OpenDir returns a reader for the directory which starts at cluster.
func (fs *Fs) OpenDir(cluster uint32) *DirReader {
	d := &DirReader{
		fs:    fs,
		chain: fs.chain(cluster),
	}

	if cluster < 2 {
		d.fail(checkpoint.Wrap(fmt.Errorf("directory at cluster %d", cluster), ErrInvalidCluster))
	}

	return d
}

func (d *DirReader) fail(err error) {
	d.state = dirFailed
	d.err = err
}

// Next returns the next resolved entry, including deleted slots and the dot entries.
// Long filename fragments are collected until their short entry is read, even across clusters.
// At the end of the directory io.EOF is returned. Any other error is final
// and returned again by every following call.
func (d *DirReader) Next() (*Entry, error) {
	for d.state == dirScanning {
		if d.offset >= int64(d.fs.info.ClusterSize) {
			if !d.chain.next() {
				if d.chain.err != nil {
					d.fail(d.chain.err)
					break
				}

				d.state = dirChainEnd
				d.fs.log.WithField("cluster", d.chain.start).Warn("directory ends without an end of directory entry")
				break
			}
			d.offset = 0
		}

		position := d.fs.info.ClusterOffset(d.chain.cluster) + d.offset
		if err := d.fs.readAt(d.slot[:], position); err != nil {
			d.fail(err)
			break
		}
		d.offset += SlotSize

		if DecodeSlot(d.slot[:]) == SlotLongName {
			fragment, err := decodeLongFilenameEntry(d.slot[:])
			if err != nil {
				d.fail(checkpoint.Wrap(err, ErrIO))
				break
			}
			d.name.accumulate(fragment)
			continue
		}

		header, err := decodeEntryHeader(d.slot[:])
		if err != nil {
			d.fail(checkpoint.Wrap(err, ErrIO))
			break
		}

		longName := d.name.finalize()
		d.name.reset()

		if isEndOfDirectory(header) {
			d.state = dirEnd
			break
		}

		return &Entry{
			EntryHeader: header,
			Kind:        classify(header),
			LongName:    longName,
			Offset:      position,
		}, nil
	}

	if d.state == dirFailed {
		return nil, d.err
	}
	return nil, io.EOF
}

// Malformed reports whether the directory ended because its cluster chain ran out
// instead of by an end of directory entry.
func (d *DirReader) Malformed() bool {
	return d.state == dirChainEnd
}
