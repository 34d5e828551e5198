package fattree

import (
	"fmt"

	"github.com/aligator/fattree/checkpoint"
	"github.com/sirupsen/logrus"
)

const (
	fatEntrySize = 4
	// fatWindowSize is the amount of FAT bytes cached at once.
	fatWindowSize = 512
)

// fatEntry is the raw 32 bit value of one FAT32 entry.
type fatEntry uint32

// Value returns the 28 bits which are used by FAT32, the upper 4 bits are reserved.
func (e fatEntry) Value() uint32 {
	return uint32(e) & 0x0FFFFFFF
}

// IsFree reports an unallocated cluster.
func (e fatEntry) IsFree() bool {
	return e.Value() == 0
}

// IsReservedTemp reports the value 1 which is never a valid link.
func (e fatEntry) IsReservedTemp() bool {
	return e.Value() == 1
}

// IsNextCluster reports a link to another cluster.
func (e fatEntry) IsNextCluster() bool {
	return e.Value() >= 2 && e.Value() <= 0x0FFFFFF6
}

// IsBad reports the bad cluster marker.
func (e fatEntry) IsBad() bool {
	return e.Value() == 0x0FFFFFF7
}

// IsEOF reports one of the end of chain markers. 0x0FFFFFFF is the usual one.
func (e fatEntry) IsEOF() bool {
	return e.Value() >= 0x0FFFFFF8
}

// ReadAsNextCluster reports whether the chain continues after this entry.
// Bad cluster markers are not special cased and get followed like any link.
func (e fatEntry) ReadAsNextCluster() bool {
	return e.IsNextCluster() || e.IsBad()
}

// ReadAsEOF reports whether the chain ends with this entry.
func (e fatEntry) ReadAsEOF() bool {
	return !e.ReadAsNextCluster()
}

// fatWindow caches a part of the first FAT.
type fatWindow struct {
	valid  bool
	offset int64
	length int
	buffer [fatWindowSize]byte
}

// fatEntryOffset returns the absolute byte offset of the FAT entry of the cluster.
func (i Info) fatEntryOffset(cluster uint32) int64 {
	return int64(i.FATStartSector)*int64(i.SectorSize) + int64(cluster)*fatEntrySize
}

// readFATEntry reads the entry of the given cluster from the first FAT.
func (fs *Fs) readFATEntry(cluster uint32) (fatEntry, error) {
	if limit := fs.info.FATEntries; limit > 0 && cluster >= limit {
		return 0, checkpoint.Wrap(fmt.Errorf("cluster %d is outside of a FAT with %d entries", cluster, limit), ErrInvalidCluster)
	}

	fatStart := fs.info.fatEntryOffset(0)
	relative := int64(cluster) * fatEntrySize
	windowOffset := fatStart + relative - relative%fatWindowSize
	within := int(relative % fatWindowSize)

	fs.lock.Lock()
	defer fs.lock.Unlock()

	// Only load it once.
	if !fs.fat.valid || fs.fat.offset != windowOffset {
		n, err := fs.image.ReadAt(fs.fat.buffer[:], windowOffset)
		if n < within+fatEntrySize {
			fs.fat.valid = false
			return 0, ioError(err, "reading FAT entry of cluster %d", cluster)
		}

		fs.fat.valid = true
		fs.fat.offset = windowOffset
		fs.fat.length = n
	}

	if fs.fat.length < within+fatEntrySize {
		return 0, ioError(nil, "reading FAT entry of cluster %d", cluster)
	}

	return fatEntry(byteOrder.Uint32(fs.fat.buffer[within:])), nil
}

// NextCluster follows the FAT entry of the current cluster.
// ok is false if the chain ends at current.
func (fs *Fs) NextCluster(current uint32) (next uint32, ok bool, err error) {
	entry, err := fs.readFATEntry(current)
	if err != nil {
		return 0, false, err
	}

	if entry.ReadAsEOF() {
		return 0, false, nil
	}

	return entry.Value(), true, nil
}

// ClusterChain returns all clusters of the chain which starts at start.
func (fs *Fs) ClusterChain(start uint32) ([]uint32, error) {
	if start < 2 {
		return nil, checkpoint.Wrap(fmt.Errorf("chain start %d", start), ErrInvalidCluster)
	}

	chain := fs.chain(start)
	clusters := []uint32{start}
	for chain.next() {
		clusters = append(clusters, chain.cluster)
	}

	if chain.err != nil {
		return clusters, chain.err
	}
	return clusters, nil
}

// clusterChain is a cursor over a chain of clusters.
// It starts positioned at the first cluster.
type clusterChain struct {
	fs      *Fs
	start   uint32
	cluster uint32
	steps   uint32
	err     error
}

func (fs *Fs) chain(start uint32) *clusterChain {
	return &clusterChain{
		fs:      fs,
		start:   start,
		cluster: start,
	}
}

// next moves to the following cluster.
// It returns false at the end of the chain or if an error occurred which is then kept in err.
func (c *clusterChain) next() bool {
	if c.err != nil {
		return false
	}

	next, ok, err := c.fs.NextCluster(c.cluster)
	if err != nil {
		c.err = err
		return false
	}
	if !ok {
		return false
	}

	// A well formed chain visits each cluster at most once.
	c.steps++
	if limit := c.fs.info.maxChainLength(); c.steps >= limit {
		c.err = checkpoint.Wrap(fmt.Errorf("chain starting at cluster %d exceeds %d clusters", c.start, limit), ErrChainTooLong)
		return false
	}

	c.fs.log.WithFields(logrus.Fields{
		"from": c.cluster,
		"to":   next,
	}).Trace("following cluster chain")

	c.cluster = next
	return true
}
