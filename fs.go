package fattree

import (
	"fmt"
	"io"
	"math/bits"
	"os"
	"sync"
	"time"

	"github.com/aligator/fattree/checkpoint"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Info contains the geometry of the volume.
// It is derived once while mounting and never changes afterwards.
type Info struct {
	SectorSize        uint16
	SectorsPerCluster uint8
	ClusterSize       uint32

	// FATStartSector is the first sector of the first FAT.
	FATStartSector uint32
	// HeapStartSector is the first sector of cluster 2.
	HeapStartSector uint32
	RootCluster     uint32

	TotalSectors uint32
	// ClusterCount is the number of clusters in the heap, 0 if unknown.
	ClusterCount uint32
	// FATEntries is the number of entries one FAT has room for.
	FATEntries uint32
}

// maxChainLength bounds every cluster chain.
// Without a total sector count the size of the FAT is used instead.
func (i Info) maxChainLength() uint32 {
	if i.ClusterCount > 0 {
		return i.ClusterCount
	}
	return i.FATEntries
}

// ClusterOffset returns the absolute byte offset of the given cluster.
func (i Info) ClusterOffset(cluster uint32) int64 {
	return int64(i.HeapStartSector)*int64(i.SectorSize) + (int64(cluster)-2)*int64(i.ClusterSize)
}

// Fs is a read-only FAT32 volume.
// All reads use explicit offsets, so one Fs may be walked concurrently.
type Fs struct {
	image  io.ReaderAt
	closer io.Closer
	info   Info

	strict bool
	log    logrus.FieldLogger

	lock sync.Mutex
	fat  fatWindow
}

// Mount reads the boot sector of the image and returns the mounted volume.
// No signature is checked unless WithStrictChecks is passed.
func Mount(image io.ReaderAt, opts ...Option) (*Fs, error) {
	fs := &Fs{
		image: image,
		log:   logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(fs)
	}

	if err := fs.initialize(); err != nil {
		return nil, err
	}

	return fs, nil
}

// MountFile opens the image at path from afs and mounts it.
// The image is closed by Fs.Close.
func MountFile(afs afero.Fs, path string, opts ...Option) (*Fs, error) {
	file, err := afs.Open(path)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrNotOpenable)
	}

	fs, err := Mount(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}

	fs.closer = file
	return fs, nil
}

// Close releases the image if it was opened by MountFile.
func (fs *Fs) Close() error {
	if fs.closer == nil {
		return nil
	}

	err := fs.closer.Close()
	fs.closer = nil
	return checkpoint.From(err)
}

// Info returns the geometry of the volume.
func (fs *Fs) Info() Info {
	return fs.info
}

func (fs *Fs) initialize() error {
	raw := make([]byte, bootSectorSize)
	n, err := fs.image.ReadAt(raw, 0)
	if n < bootSectorSize {
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return ioError(err, "reading the boot sector")
		}
		return checkpoint.Wrap(fmt.Errorf("boot sector has %d of %d bytes", n, bootSectorSize), ErrTruncated)
	}

	bpb, err := decodeBPB(raw)
	if err != nil {
		return checkpoint.Wrap(err, ErrTruncated)
	}

	fat32, err := decodeFAT32SpecificData(bpb)
	if err != nil {
		return checkpoint.Wrap(err, ErrTruncated)
	}

	if fs.strict {
		if err := checkBPB(bpb, fat32); err != nil {
			return checkpoint.Wrap(err, ErrNotFAT)
		}
	}

	// All cluster math depends on these.
	if bpb.BytesPerSector == 0 || bpb.SectorsPerCluster == 0 || fat32.FATSize == 0 {
		return checkpoint.Wrap(fmt.Errorf("bytes per sector: %d, sectors per cluster: %d, FAT size: %d", bpb.BytesPerSector, bpb.SectorsPerCluster, fat32.FATSize), ErrInvalidGeometry)
	}

	fs.info = Info{
		SectorSize:        bpb.BytesPerSector,
		SectorsPerCluster: bpb.SectorsPerCluster,
		ClusterSize:       uint32(bpb.BytesPerSector) * uint32(bpb.SectorsPerCluster),
		FATStartSector:    uint32(bpb.ReservedSectorCount),
		HeapStartSector:   uint32(bpb.ReservedSectorCount) + uint32(bpb.NumFATs)*fat32.FATSize,
		RootCluster:       fat32.RootCluster,
		FATEntries:        uint32(uint64(fat32.FATSize) * uint64(bpb.BytesPerSector) / 4),
	}

	if bpb.TotalSectors16 != 0 {
		fs.info.TotalSectors = uint32(bpb.TotalSectors16)
	} else {
		fs.info.TotalSectors = bpb.TotalSectors32
	}

	if fs.info.TotalSectors > fs.info.HeapStartSector {
		fs.info.ClusterCount = (fs.info.TotalSectors - fs.info.HeapStartSector) / uint32(bpb.SectorsPerCluster)
	}

	fs.log.WithFields(logrus.Fields{
		"sectorSize":      fs.info.SectorSize,
		"clusterSize":     fs.info.ClusterSize,
		"fatStartSector":  fs.info.FATStartSector,
		"heapStartSector": fs.info.HeapStartSector,
		"rootCluster":     fs.info.RootCluster,
		"clusters":        fs.info.ClusterCount,
		"fatEntries":      fs.info.FATEntries,
	}).Debug("mounted FAT volume")

	return nil
}

// checkBPB validates the boot sector against the FAT32 specification.
func checkBPB(bpb BPB, fat32 FAT32SpecificData) error {
	// Check for valid jump instructions
	if !(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) && !(bpb.BSJumpBoot[0] == 0xE9) {
		return fmt.Errorf("no valid jump instructions at the beginning")
	}

	// FAT only supports 512, 1024, 2048 and 4096
	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return fmt.Errorf("invalid sector size %d", bpb.BytesPerSector)
	}

	// Sectors per cluster has to be a power of two and the cluster should not be more than 32K.
	if bits.OnesCount8(bpb.SectorsPerCluster) != 1 || uint32(bpb.BytesPerSector)*uint32(bpb.SectorsPerCluster) > 32*1024 {
		return fmt.Errorf("invalid sectors per cluster %d", bpb.SectorsPerCluster)
	}

	if bpb.ReservedSectorCount == 0 {
		return fmt.Errorf("invalid reserved sector count")
	}

	if bpb.NumFATs == 0 {
		return fmt.Errorf("no FAT present")
	}

	if bpb.Media != 0xF0 && bpb.Media < 0xF8 {
		return fmt.Errorf("invalid media value 0x%X", bpb.Media)
	}

	// Only FAT32 keeps the root directory in the cluster heap.
	if bpb.RootEntryCount != 0 || bpb.FATSize16 != 0 || fat32.FATSize == 0 {
		return fmt.Errorf("not a FAT32 volume")
	}

	if fat32.RootCluster < 2 {
		return fmt.Errorf("invalid root cluster %d", fat32.RootCluster)
	}

	return nil
}

// readAt fills p from the image, a short read is an error.
func (fs *Fs) readAt(p []byte, offset int64) error {
	n, err := fs.image.ReadAt(p, offset)
	if n == len(p) {
		return nil
	}

	return ioError(err, "reading %d bytes at offset %d", len(p), offset)
}

// ioError wraps a failed read into ErrIO.
// A missing or EOF cause means the image ended too early.
func ioError(cause error, format string, args ...interface{}) error {
	if cause == nil || cause == io.EOF {
		cause = io.ErrUnexpectedEOF
	}

	return checkpoint.Wrap(fmt.Errorf(format+": %w", append(args, cause)...), ErrIO)
}

// Root returns a directory entry which describes the root directory.
func (fs *Fs) Root() *Entry {
	header := EntryHeader{
		Attribute:      AttrDirectory,
		FirstClusterLO: uint16(fs.info.RootCluster),
		FirstClusterHI: uint16(fs.info.RootCluster >> 16),
	}
	copy(header.Name[:], "           ")

	return &Entry{EntryHeader: header, Kind: KindDirectory}
}

// Label returns the volume label stored in the root directory.
// It is empty if the volume has none.
func (fs *Fs) Label() (string, error) {
	dir := fs.OpenDir(fs.info.RootCluster)
	for {
		entry, err := dir.Next()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}

		if entry.Kind == KindVolumeLabel {
			return entry.Name(), nil
		}
	}
}

// readDir returns the files and directories, without the dot entries.
func (fs *Fs) readDir(cluster uint32) ([]Entry, error) {
	var entries []Entry

	dir := fs.OpenDir(cluster)
	for {
		entry, err := dir.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}

		if entry.Kind == KindFile || entry.Kind == KindDirectory {
			entries = append(entries, *entry)
		}
	}
}

// readFileAt reads up to readSize bytes at offset of the file which starts at cluster.
// If the file ends before readSize bytes are read, the data read so far is returned together with io.EOF.
func (fs *Fs) readFileAt(cluster uint32, fileSize int64, offset int64, readSize int64) ([]byte, error) {
	if offset < 0 {
		return nil, checkpoint.Wrap(fmt.Errorf("negative offset %d", offset), afero.ErrOutOfRange)
	}
	if offset >= fileSize {
		return nil, io.EOF
	}

	var result error
	if offset+readSize > fileSize {
		readSize = fileSize - offset
		result = io.EOF
	}

	if cluster < 2 {
		return nil, checkpoint.Wrap(fmt.Errorf("file with %d bytes starts at cluster %d", fileSize, cluster), ErrInvalidCluster)
	}

	clusterSize := int64(fs.info.ClusterSize)
	chain := fs.chain(cluster)

	for skip := offset / clusterSize; skip > 0; skip-- {
		if !chain.next() {
			return nil, chainEndError(chain)
		}
	}

	data := make([]byte, readSize)
	within := offset % clusterSize
	var read int64
	for read < readSize {
		if within == clusterSize {
			if !chain.next() {
				return data[:read], chainEndError(chain)
			}
			within = 0
		}

		n := clusterSize - within
		if n > readSize-read {
			n = readSize - read
		}

		if err := fs.readAt(data[read:read+n], fs.info.ClusterOffset(chain.cluster)+within); err != nil {
			return data[:read], err
		}

		read += n
		within += n
	}

	return data, result
}

// chainEndError explains why a chain ended before the file did.
func chainEndError(chain *clusterChain) error {
	if chain.err != nil {
		return chain.err
	}
	return ioError(nil, "cluster chain starting at %d ends before the file", chain.start)
}

// The following methods implement afero.Fs.

// Name returns the name of this filesystem.
func (fs *Fs) Name() string {
	return "fattree"
}

// Open opens the file or directory at path.
// Names are compared case insensitive against the long and the short name.
func (fs *Fs) Open(name string) (afero.File, error) {
	entry, err := fs.lookup(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	return newFile(fs, name, entry), nil
}

// OpenFile only supports opening for reading.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrReadOnly}
	}
	return fs.Open(name)
}

// Stat returns the FileInfo of the file or directory at path.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	entry, err := fs.lookup(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}

	return entry.FileInfo(), nil
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "create", Path: name, Err: ErrReadOnly}
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: ErrReadOnly}
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: path, Err: ErrReadOnly}
}

func (fs *Fs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: ErrReadOnly}
}

func (fs *Fs) RemoveAll(path string) error {
	return &os.PathError{Op: "remove", Path: path, Err: ErrReadOnly}
}

func (fs *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: ErrReadOnly}
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return &os.PathError{Op: "chmod", Path: name, Err: ErrReadOnly}
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return &os.PathError{Op: "chown", Path: name, Err: ErrReadOnly}
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return &os.PathError{Op: "chtimes", Path: name, Err: ErrReadOnly}
}
