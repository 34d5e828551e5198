package fattree

import (
	"os"
	"strings"
	"syscall"
)

// splitPath splits by slash and drops empty and "." elements.
// A backslash is part of the name, so it never matches an entry.
func splitPath(name string) []string {
	var parts []string
	for _, part := range strings.Split(name, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

// lookup resolves the path starting at the root directory.
// The returned errors are left unwrapped so that os.IsNotExist keeps working on the *os.PathError.
func (fs *Fs) lookup(name string) (*Entry, error) {
	current := fs.Root()

	for _, part := range splitPath(name) {
		if !current.IsDir() {
			return nil, syscall.ENOTDIR
		}

		entries, err := fs.readDir(current.FirstCluster())
		if err != nil {
			return nil, err
		}

		var found *Entry
		for i := range entries {
			if strings.EqualFold(entries[i].Name(), part) || strings.EqualFold(entries[i].ShortName(), part) {
				found = &entries[i]
				break
			}
		}

		if found == nil {
			return nil, os.ErrNotExist
		}
		current = found
	}

	return current, nil
}
