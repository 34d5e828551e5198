// File model contains the structs which match the direct structures of the FAT filesystem.
// They are decoded field by field in little endian order using restruct,
// so the Go memory layout never has to match the on-disk layout.

package fattree

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

const (
	// bootSectorSize is the size of the BIOS parameter block including the FAT32 extension.
	bootSectorSize = 90

	// SlotSize is the size of one directory slot.
	SlotSize = 32

	attributeOffset = 11
)

// Attribute flags of a directory entry.
const (
	AttrReadOnly  byte = 0x01
	AttrHidden    byte = 0x02
	AttrSystem    byte = 0x04
	AttrVolumeID  byte = 0x08
	AttrDirectory byte = 0x10
	AttrArchive   byte = 0x20
	AttrLongName       = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

const (
	// lfnMaxFragments is the highest ordinal a long filename fragment may carry.
	lfnMaxFragments = 20
	// lfnCharsPerFragment is the number of UTF-16 code units stored in one fragment.
	lfnCharsPerFragment = 13
	lfnBufferLength     = lfnMaxFragments * lfnCharsPerFragment
	lfnOrdinalMask      = 0x1F
	lfnLastFragment     = 0x40
	lfnUnusedChar       = 0xFFFF

	// deletedMarker marks a deleted short entry or lfn fragment in the first byte.
	deletedMarker = 0xE5
	// kanjiMarker stands in for a leading 0xE5 of a real name.
	kanjiMarker = 0x05
)

var byteOrder = binary.LittleEndian

// BPB is the BIOS parameter block at the start of the volume.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSpecificData     [54]byte
}

// FAT32SpecificData follows the common BPB fields on FAT32 volumes.
type FAT32SpecificData struct {
	FATSize          uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// EntryHeader is a short (8.3) directory entry.
type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// FirstCluster joins both halves of the start cluster.
func (h EntryHeader) FirstCluster() uint32 {
	return uint32(h.FirstClusterHI)<<16 | uint32(h.FirstClusterLO)
}

// LongFilenameEntry is one fragment of a long filename.
// The checksum of the short name is read but never validated.
type LongFilenameEntry struct {
	Sequence  byte
	First     [5]uint16
	Attribute byte
	EntryType byte
	Checksum  byte
	Second    [6]uint16
	Zero      [2]byte
	Third     [2]uint16
}

// Ordinal is the position of the fragment inside the name, starting with 1.
func (l LongFilenameEntry) Ordinal() int {
	return int(l.Sequence & lfnOrdinalMask)
}

// IsLast reports whether the fragment is flagged as the last one of its name.
func (l LongFilenameEntry) IsLast() bool {
	return l.Sequence&lfnLastFragment != 0
}

func (l LongFilenameEntry) units() [lfnCharsPerFragment]uint16 {
	var u [lfnCharsPerFragment]uint16
	n := copy(u[:], l.First[:])
	n += copy(u[n:], l.Second[:])
	copy(u[n:], l.Third[:])
	return u
}

func decodeBPB(raw []byte) (BPB, error) {
	var bpb BPB
	err := restruct.Unpack(raw[:bootSectorSize], byteOrder, &bpb)
	return bpb, err
}

func decodeFAT32SpecificData(bpb BPB) (FAT32SpecificData, error) {
	var data FAT32SpecificData
	err := restruct.Unpack(bpb.FATSpecificData[:], byteOrder, &data)
	return data, err
}

func decodeEntryHeader(slot []byte) (EntryHeader, error) {
	var h EntryHeader
	err := restruct.Unpack(slot[:SlotSize], byteOrder, &h)
	return h, err
}

func decodeLongFilenameEntry(slot []byte) (LongFilenameEntry, error) {
	var l LongFilenameEntry
	err := restruct.Unpack(slot[:SlotSize], byteOrder, &l)
	return l, err
}
