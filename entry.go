package fattree

// Kind classifies a resolved directory entry.
type Kind uint8

const (
	// KindUnused is a deleted or blank slot.
	KindUnused Kind = iota
	KindVolumeLabel
	KindDirectory
	// KindDotDirectory is the "." or ".." entry of a directory.
	KindDotDirectory
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindVolumeLabel:
		return "label"
	case KindDirectory:
		return "directory"
	case KindDotDirectory:
		return "dot"
	case KindFile:
		return "file"
	default:
		return "unused"
	}
}

// Entry is a short entry together with its long filename.
type Entry struct {
	EntryHeader
	Kind Kind

	// LongName is empty if the entry had no long filename.
	LongName string

	// Offset is the absolute position of the short entry slot in the image.
	Offset int64
}

// classify decides the kind of a short entry.
func classify(h EntryHeader) Kind {
	switch {
	case h.Name[0] == 0, h.Name[0] == deletedMarker:
		return KindUnused
	case h.Attribute&AttrDirectory != 0:
		if isDotName(h.Name) {
			return KindDotDirectory
		}
		return KindDirectory
	case h.Attribute&AttrVolumeID != 0:
		return KindVolumeLabel
	default:
		return KindFile
	}
}

func isDotName(name [11]byte) bool {
	return name == [11]byte{'.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '} ||
		name == [11]byte{'.', '.', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}
}

// isEndOfDirectory reports the entry which terminates a directory.
// No slot after it is in use.
func isEndOfDirectory(h EntryHeader) bool {
	return h.Attribute == 0 && h.Name[0] == 0
}

// Name returns the long filename if present, else the short name.
func (e *Entry) Name() string {
	if e.LongName != "" {
		return e.LongName
	}
	return e.ShortName()
}

// ShortName returns the 8.3 name without trailing spaces.
func (e *Entry) ShortName() string {
	return shortName(e.EntryHeader)
}

// IsDir reports whether the entry is a directory, including the dot entries.
func (e *Entry) IsDir() bool {
	return e.Attribute&AttrDirectory != 0
}

// HasSeparator reports whether a path separator should follow the name when printed.
func (e *Entry) HasSeparator() bool {
	return e.Kind == KindDirectory || e.Kind == KindDotDirectory
}

// Size returns the file size in bytes.
func (e *Entry) Size() int64 {
	return int64(e.FileSize)
}
