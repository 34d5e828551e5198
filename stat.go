package fattree

import (
	"os"
	"time"
)

// FileInfo returns the entry as os.FileInfo.
func (e *Entry) FileInfo() os.FileInfo {
	return entryFileInfo{*e}
}

// ModTime returns the last write time, the zero time if the date is invalid.
func (e *Entry) ModTime() time.Time {
	return ParseTimestamp(e.WriteDate, e.WriteTime)
}

type entryFileInfo struct {
	entry Entry
}

func (i entryFileInfo) Name() string {
	return i.entry.Name()
}

func (i entryFileInfo) Size() int64 {
	return i.entry.Size()
}

func (i entryFileInfo) Mode() os.FileMode {
	if i.IsDir() {
		return os.ModeDir
	}
	return 0
}

func (i entryFileInfo) ModTime() time.Time {
	return i.entry.ModTime()
}

func (i entryFileInfo) IsDir() bool {
	return i.entry.IsDir()
}

// Sys returns the Entry.
func (i entryFileInfo) Sys() interface{} {
	return i.entry
}
