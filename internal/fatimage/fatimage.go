// Package fatimage builds small FAT32 images in memory.
// It is used to generate test images, it does not implement a real formatter:
// clusters are placed where the caller asks for them.
package fatimage

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

const (
	SlotSize = 32

	// EndOfChain is the end of chain marker written by Link.
	EndOfChain uint32 = 0x0FFFFFFF
	// BadCluster marks a cluster as unusable.
	BadCluster uint32 = 0x0FFFFFF7

	AttrVolumeID  byte = 0x08
	AttrDirectory byte = 0x10
	AttrArchive   byte = 0x20
	AttrLongName  byte = 0x0F

	lfnCharsPerFragment = 13
	lfnLastFragment     = 0x40
)

var byteOrder = binary.LittleEndian

// Geometry describes the layout of the image.
type Geometry struct {
	SectorSize        uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	// Clusters is the number of clusters in the heap, they are numbered from 2.
	Clusters    uint32
	RootCluster uint32
}

// DefaultGeometry is a tiny volume with 512 byte clusters.
var DefaultGeometry = Geometry{
	SectorSize:        512,
	SectorsPerCluster: 1,
	ReservedSectors:   32,
	NumFATs:           2,
	Clusters:          32,
	RootCluster:       2,
}

// Image is a FAT32 image under construction.
type Image struct {
	Geometry
	fatSectors uint32
	data       []byte
}

// New formats an empty image. The root directory occupies its root cluster only.
func New(g Geometry) *Image {
	entriesPerSector := uint32(g.SectorSize) / 4
	fatSectors := (g.Clusters + 2 + entriesPerSector - 1) / entriesPerSector

	img := &Image{
		Geometry:   g,
		fatSectors: fatSectors,
	}
	img.data = make([]byte, int64(img.heapStartSector())*int64(g.SectorSize)+int64(g.Clusters)*img.ClusterSize())

	img.writeBootSector()
	img.SetFAT(0, 0x0FFFFFF8)
	img.SetFAT(1, EndOfChain)
	img.SetFAT(g.RootCluster, EndOfChain)

	return img
}

func (img *Image) heapStartSector() uint32 {
	return uint32(img.ReservedSectors) + uint32(img.NumFATs)*img.fatSectors
}

func (img *Image) totalSectors() uint32 {
	return img.heapStartSector() + img.Clusters*uint32(img.SectorsPerCluster)
}

// ClusterSize returns the size of a cluster in bytes.
func (img *Image) ClusterSize() int64 {
	return int64(img.SectorSize) * int64(img.SectorsPerCluster)
}

// ClusterOffset returns the absolute offset of the cluster.
func (img *Image) ClusterOffset(cluster uint32) int64 {
	return int64(img.heapStartSector())*int64(img.SectorSize) + int64(cluster-2)*img.ClusterSize()
}

// Bytes returns the raw image.
func (img *Image) Bytes() []byte {
	return img.data
}

func (img *Image) writeBootSector() {
	b := img.data
	copy(b[0:3], []byte{0xEB, 0x58, 0x90})
	copy(b[3:11], "MSWIN4.1")
	byteOrder.PutUint16(b[0x0B:], img.SectorSize)
	b[0x0D] = img.SectorsPerCluster
	byteOrder.PutUint16(b[0x0E:], img.ReservedSectors)
	b[0x10] = img.NumFATs
	b[0x15] = 0xF8
	byteOrder.PutUint32(b[0x20:], img.totalSectors())
	byteOrder.PutUint32(b[0x24:], img.fatSectors)
	byteOrder.PutUint32(b[0x2C:], img.RootCluster)
	byteOrder.PutUint16(b[0x30:], 1)
	byteOrder.PutUint16(b[0x32:], 6)
	b[0x42] = 0x29
	copy(b[0x47:0x52], "NO NAME    ")
	copy(b[0x52:0x5A], "FAT32   ")
	if len(b) >= 512 {
		b[510] = 0x55
		b[511] = 0xAA
	}
}

// SetFAT writes value as the entry of cluster into every FAT.
func (img *Image) SetFAT(cluster uint32, value uint32) {
	for i := uint32(0); i < uint32(img.NumFATs); i++ {
		start := int64(uint32(img.ReservedSectors)+i*img.fatSectors) * int64(img.SectorSize)
		byteOrder.PutUint32(img.data[start+int64(cluster)*4:], value)
	}
}

// Link chains the clusters in the given order and terminates the chain.
func (img *Image) Link(clusters ...uint32) {
	for i, cluster := range clusters {
		if i == len(clusters)-1 {
			img.SetFAT(cluster, EndOfChain)
		} else {
			img.SetFAT(cluster, clusters[i+1])
		}
	}
}

// WriteSlot writes a slot at the index inside of the cluster.
func (img *Image) WriteSlot(cluster uint32, index int, slot []byte) {
	copy(img.data[img.ClusterOffset(cluster)+int64(index)*SlotSize:], slot[:SlotSize])
}

// WriteData writes data over the given clusters, which have to be linked by the caller.
func (img *Image) WriteData(data []byte, clusters ...uint32) {
	size := img.ClusterSize()
	for _, cluster := range clusters {
		if len(data) == 0 {
			return
		}

		n := int64(len(data))
		if n > size {
			n = size
		}
		copy(img.data[img.ClusterOffset(cluster):], data[:n])
		data = data[n:]
	}
}

// Dir writes slots sequentially into the clusters of a directory.
type Dir struct {
	img      *Image
	clusters []uint32
	next     int
}

// Dir links the clusters and returns a writer for the directory stored in them.
func (img *Image) Dir(clusters ...uint32) *Dir {
	img.Link(clusters...)
	return &Dir{img: img, clusters: clusters}
}

// Add appends the slots to the directory.
func (d *Dir) Add(slots ...[]byte) *Dir {
	perCluster := int(d.img.ClusterSize() / SlotSize)
	for _, slot := range slots {
		index := d.next / perCluster
		if index >= len(d.clusters) {
			panic(fmt.Sprintf("fatimage: directory with %d clusters is full", len(d.clusters)))
		}
		d.img.WriteSlot(d.clusters[index], d.next%perCluster, slot)
		d.next++
	}
	return d
}

// Next returns the number of slots written so far.
func (d *Dir) Next() int {
	return d.next
}

// ShortName pads base and ext to the 8.3 layout.
func ShortName(base, ext string) [11]byte {
	var name [11]byte
	for i := range name {
		name[i] = ' '
	}
	copy(name[:8], base)
	copy(name[8:], ext)
	return name
}

// Entry returns a short entry slot.
func Entry(name [11]byte, attribute byte, cluster uint32, size uint32) []byte {
	slot := make([]byte, SlotSize)
	copy(slot[0:11], name[:])
	slot[11] = attribute
	byteOrder.PutUint16(slot[20:], uint16(cluster>>16))
	// 2021-03-14 12:30:10
	byteOrder.PutUint16(slot[22:], 12<<11|30<<5|5)
	byteOrder.PutUint16(slot[24:], 41<<9|3<<5|14)
	byteOrder.PutUint16(slot[26:], uint16(cluster))
	byteOrder.PutUint32(slot[28:], size)
	return slot
}

// File returns a short entry slot of a file.
func File(base, ext string, cluster uint32, size uint32) []byte {
	return Entry(ShortName(base, ext), AttrArchive, cluster, size)
}

// Directory returns a short entry slot of a directory.
func Directory(base string, cluster uint32) []byte {
	return Entry(ShortName(base, ""), AttrDirectory, cluster, 0)
}

// VolumeLabel returns the label slot of a volume.
func VolumeLabel(label string) []byte {
	var name [11]byte
	for i := range name {
		name[i] = ' '
	}
	copy(name[:], label)
	return Entry(name, AttrVolumeID, 0, 0)
}

// DotEntries returns the "." and ".." slots of a directory.
func DotEntries(self, parent uint32) [][]byte {
	return [][]byte{
		Entry(ShortName(".", ""), AttrDirectory, self, 0),
		Entry(ShortName("..", ""), AttrDirectory, parent, 0),
	}
}

// Deleted marks a slot as deleted.
func Deleted(slot []byte) []byte {
	deleted := append([]byte(nil), slot...)
	deleted[0] = 0xE5
	return deleted
}

// End returns the end of directory slot.
func End() []byte {
	return make([]byte, SlotSize)
}

// Checksum calculates the checksum of a short name which is stored in each long name fragment.
func Checksum(name [11]byte) byte {
	var sum byte
	for _, c := range name {
		sum = (sum&1)<<7 + sum>>1 + c
	}
	return sum
}

// LongName returns the fragments for name in on-disk order, the last fragment first.
func LongName(name string, short [11]byte) [][]byte {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(name))
	if err != nil {
		panic(err)
	}

	units := make([]uint16, len(encoded)/2)
	for i := range units {
		units[i] = byteOrder.Uint16(encoded[i*2:])
	}

	// Terminate and pad names which do not fill the last fragment.
	if len(units)%lfnCharsPerFragment != 0 {
		units = append(units, 0)
		for len(units)%lfnCharsPerFragment != 0 {
			units = append(units, 0xFFFF)
		}
	}

	count := len(units) / lfnCharsPerFragment
	checksum := Checksum(short)
	slots := make([][]byte, 0, count)
	for ordinal := count; ordinal >= 1; ordinal-- {
		sequence := byte(ordinal)
		if ordinal == count {
			sequence |= lfnLastFragment
		}
		part := units[(ordinal-1)*lfnCharsPerFragment : ordinal*lfnCharsPerFragment]
		slots = append(slots, Fragment(sequence, checksum, part))
	}

	return slots
}

// Fragment returns one long name slot with the raw sequence byte and 13 code units.
func Fragment(sequence byte, checksum byte, units []uint16) []byte {
	slot := make([]byte, SlotSize)
	slot[0] = sequence
	slot[11] = AttrLongName
	slot[13] = checksum

	positions := [lfnCharsPerFragment]int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30}
	for i, pos := range positions {
		unit := uint16(0xFFFF)
		if i < len(units) {
			unit = units[i]
		}
		byteOrder.PutUint16(slot[pos:], unit)
	}

	return slot
}
