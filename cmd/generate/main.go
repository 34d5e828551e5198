package main

import (
	"os"
	"path/filepath"

	"github.com/aligator/fattree/internal/fatimage"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// main for writing the sample image. Can be executed using 'go generate' from the project root.
func main() {
	dest := "testdata"
	if len(os.Args) > 1 {
		dest = os.Args[1]
	}

	afs := afero.NewOsFs()
	if err := afs.MkdirAll(dest, 0755); err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(dest, "sample.img")
	if err := afero.WriteFile(afs, path, fatimage.Sample().Bytes(), 0644); err != nil {
		log.Fatal(err)
	}

	log.WithField("path", path).Info("wrote sample image")
}
