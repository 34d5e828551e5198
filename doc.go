// Package fattree reads FAT32 volumes from any io.ReaderAt.
// It lists directories, joins long filenames and walks the whole directory tree.
// The Fs also implements a read-only afero.Fs, so files can be read with the usual afero helpers.
package fattree

//go:generate go run ./cmd/generate testdata
