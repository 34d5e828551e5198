package fattree

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// SlotKind tells how a 32 byte directory slot has to be decoded.
type SlotKind uint8

const (
	// SlotShort is a short 8.3 entry.
	SlotShort SlotKind = iota
	// SlotLongName is a fragment of a long filename.
	SlotLongName
)

func (k SlotKind) String() string {
	if k == SlotLongName {
		return "long name fragment"
	}
	return "short entry"
}

// DecodeSlot classifies a directory slot by its attribute byte only.
// Exactly the value 0x0F marks a long filename fragment, every other value is a short entry.
func DecodeSlot(slot []byte) SlotKind {
	if slot[attributeOffset] == AttrLongName {
		return SlotLongName
	}
	return SlotShort
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// nameBuffer collects the fragments of one long filename.
// Each fragment is placed by its ordinal, so the arrival order does not matter.
type nameBuffer struct {
	units [lfnBufferLength]uint16
}

// accumulate copies the fragment into the buffer.
// Deleted fragments and fragments with an ordinal outside of 1..20 are dropped,
// in which case false is returned.
func (b *nameBuffer) accumulate(fragment LongFilenameEntry) bool {
	if fragment.Sequence == deletedMarker {
		return false
	}

	ordinal := fragment.Ordinal()
	if ordinal < 1 || ordinal > lfnMaxFragments {
		return false
	}

	start := (ordinal - 1) * lfnCharsPerFragment
	for i, unit := range fragment.units() {
		// Padding after the terminating null.
		if unit == lfnUnusedChar {
			unit = 0
		}
		b.units[start+i] = unit
	}

	return true
}

// finalize returns the collected name up to the first null.
// An empty result means that no long name is present.
func (b *nameBuffer) finalize() string {
	length := 0
	for length < len(b.units) && b.units[length] != 0 {
		length++
	}
	if length == 0 {
		return ""
	}

	raw := make([]byte, length*2)
	for i, unit := range b.units[:length] {
		byteOrder.PutUint16(raw[i*2:], unit)
	}

	name, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(name)
}

func (b *nameBuffer) reset() {
	b.units = [lfnBufferLength]uint16{}
}

// oemString decodes the bytes of a short name which are stored in the OEM code page.
func oemString(raw []byte) string {
	raw = bytes.TrimRight(raw, " ")
	if len(raw) == 0 {
		return ""
	}

	if raw[0] == kanjiMarker {
		raw = append([]byte{deletedMarker}, raw[1:]...)
	}

	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// shortName renders the 8.3 name like DOS does:
// volume labels use all 11 bytes, directories only the 8 byte base name
// and files base.ext without a dot if the extension is blank.
func shortName(h EntryHeader) string {
	switch {
	case h.Attribute&AttrDirectory != 0:
		return oemString(h.Name[:8])
	case h.Attribute&AttrVolumeID != 0:
		return oemString(h.Name[:])
	}

	name := oemString(h.Name[:8])
	ext := oemString(h.Name[8:])
	if ext == "" {
		return name
	}

	return name + "." + ext
}
