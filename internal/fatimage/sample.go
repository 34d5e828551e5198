package fatimage

import "strings"

// Contents of the files in the sample image.
var (
	SampleReadme = []byte("Hello FAT32!\n")
	SampleNotes  = []byte("- walk the cluster chain\n- join the long names\n")
	SampleLong   = []byte(strings.Repeat("0123456789abcdef", 44))
)

// Sample returns a small image with a label, long filenames, nested directories,
// a deleted entry and a file which spans two clusters:
//  SAMPLE
//  README.TXT
//  Documents and Settings/
//      NOTES.TXT
//      EMPTY/
//  HelloWorldThisIsALoongFileName.txt
func Sample() *Image {
	img := New(DefaultGeometry)

	documents := ShortName("DOCUME~1", "")
	hello := ShortName("HELLOW~1", "TXT")

	root := img.Dir(2)
	root.Add(VolumeLabel("SAMPLE"))
	root.Add(File("README", "TXT", 6, uint32(len(SampleReadme))))
	root.Add(LongName("Documents and Settings", documents)...)
	root.Add(Entry(documents, AttrDirectory, 3, 0))
	root.Add(Deleted(File("OLD", "TXT", 9, 10)))
	root.Add(LongName("HelloWorldThisIsALoongFileName.txt", hello)...)
	root.Add(Entry(hello, AttrArchive, 7, uint32(len(SampleLong))))
	root.Add(End())

	img.Dir(3).
		Add(DotEntries(3, 0)...).
		Add(File("NOTES", "TXT", 5, uint32(len(SampleNotes)))).
		Add(Directory("EMPTY", 4)).
		Add(End())

	img.Dir(4).
		Add(DotEntries(4, 3)...).
		Add(End())

	img.Link(5)
	img.WriteData(SampleNotes, 5)
	img.Link(6)
	img.WriteData(SampleReadme, 6)
	img.Link(7, 8)
	img.WriteData(SampleLong, 7, 8)

	return img
}
