package fattree

import (
	"errors"
	"io"
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
)

// fileTestFields is essentially a copy of the File struct used to fill the
// unit under test in test cases.
type fileTestFields struct {
	path         string
	isDirectory  bool
	isReadOnly   bool
	isHidden     bool
	isSystem     bool
	firstCluster uint32
	stat         os.FileInfo
	offset       int64
}

func (fields fileTestFields) file(fs fatFileFs) *File {
	return &File{
		fs:           fs,
		path:         fields.path,
		isDirectory:  fields.isDirectory,
		isReadOnly:   fields.isReadOnly,
		isHidden:     fields.isHidden,
		isSystem:     fields.isSystem,
		firstCluster: fields.firstCluster,
		stat:         fields.stat,
		offset:       fields.offset,
	}
}

// fakeFileInfo is just a fake FileInfo which does nothing and contains only
// someData to have something to check equality.
type fakeFileInfo struct {
	someData string
	fileSize int64
}

func (f fakeFileInfo) Name() string       { return f.someData }
func (f fakeFileInfo) Size() int64        { return f.fileSize }
func (f fakeFileInfo) Mode() os.FileMode  { return 0 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() interface{}   { return nil }

// fileTestsError is just a error used in tests for File.
var fileTestsError = errors.New("a super error")

// namedEntry returns an entry which is identified by its long name only.
func namedEntry(name string) Entry {
	return Entry{LongName: name, Kind: KindFile}
}

func TestFile_Close(t *testing.T) {
	tests := []struct {
		name   string
		fields fileTestFields
	}{
		{
			name: "just close and reset all fields",
			fields: fileTestFields{
				path:         "/any/path",
				isDirectory:  true,
				isReadOnly:   true,
				isHidden:     true,
				isSystem:     true,
				firstCluster: 5,
				stat:         entryFileInfo{},
				offset:       7,
			},
		},
	}

	fClosed := File{path: "/any/path", closed: true}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fields.file(&Fs{})
			if err := f.Close(); err != nil {
				t.Errorf("File.Close() error = %v", err)
			}

			if *f != fClosed {
				t.Errorf("File.Close() did not reset all fields: File = %v want = %v", *f, fClosed)
			}
		})
	}
}

func TestFile_Close_usedAfterClose(t *testing.T) {
	f := fileTestFields{
		path:         "/DOCS/README.TXT",
		isDirectory:  true,
		firstCluster: 3,
		stat:         fakeFileInfo{fileSize: 11},
	}.file(nil)

	if err := f.Close(); err != nil {
		t.Fatalf("File.Close() error = %v", err)
	}

	calls := map[string]func() error{
		"Close": f.Close,
		"Read": func() error {
			_, err := f.Read(make([]byte, 4))
			return err
		},
		"ReadAt": func() error {
			_, err := f.ReadAt(make([]byte, 4), 0)
			return err
		},
		"Seek": func() error {
			_, err := f.Seek(0, io.SeekStart)
			return err
		},
		"Readdir": func() error {
			_, err := f.Readdir(-1)
			return err
		},
		"Readdirnames": func() error {
			_, err := f.Readdirnames(-1)
			return err
		},
		"Stat": func() error {
			_, err := f.Stat()
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, os.ErrClosed) {
			t.Errorf("File.%s() error = %v, wantErr %v", name, err, os.ErrClosed)
		}
	}

	if got := f.Name(); got != "README.TXT" {
		t.Errorf("File.Name() = %q, want README.TXT", got)
	}
}

func TestFile_Read(t *testing.T) {
	type args struct {
		p []byte
	}
	type mock struct {
		readAtResult []byte
		readAtError  error
	}
	tests := []struct {
		name       string
		mockData   mock
		fields     fileTestFields
		args       args
		wantN      int
		wantOffset int64
		wantErr    error
	}{
		{
			name: "simple file",
			mockData: mock{
				readAtResult: []byte("Hell0 World"),
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 11),
			},
			wantN:      11,
			wantOffset: 11,
		},
		{
			name: "simple file with offset",
			mockData: mock{
				readAtResult: []byte(" World"),
			},
			fields: fileTestFields{
				firstCluster: 3,
				offset:       5,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 6),
			},
			wantN:      6,
			wantOffset: 11,
		},
		{
			name: "error while reading",
			mockData: mock{
				readAtResult: []byte{'H'}, // Simulate error after some bytes are already read.
				readAtError:  fileTestsError,
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 11),
			},
			wantN:      1,
			wantOffset: 1,
			wantErr:    fileTestsError,
		},
		{
			name: "file smaller than buffer",
			mockData: mock{
				readAtResult: []byte("Hell0 World"),
				readAtError:  io.EOF,
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p: make([]byte, 20),
			},
			wantN:      11,
			wantOffset: 11,
			wantErr:    io.EOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)
			mockFs.EXPECT().
				readFileAt(tt.fields.firstCluster, tt.fields.stat.Size(), tt.fields.offset, int64(len(tt.args.p))).
				MaxTimes(1).
				Return(tt.mockData.readAtResult, tt.mockData.readAtError)

			f := tt.fields.file(mockFs)
			gotN, err := f.Read(tt.args.p)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Read() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotN != tt.wantN {
				t.Errorf("File.Read() = %v, want %v", gotN, tt.wantN)
			}
			if f.offset != tt.wantOffset {
				t.Errorf("File.offset = %v, want %v", f.offset, tt.wantOffset)
			}
		})
	}
}

func TestFile_Read_noMockCall(t *testing.T) {
	tests := []struct {
		name    string
		fields  fileTestFields
		wantErr error
	}{
		{
			name: "offset at the end",
			fields: fileTestFields{
				stat:   fakeFileInfo{fileSize: 11},
				offset: 11,
			},
			wantErr: io.EOF,
		},
		{
			name: "directory",
			fields: fileTestFields{
				isDirectory: true,
				stat:        fakeFileInfo{},
			},
			wantErr: syscall.EISDIR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			// No call expected, any call fails the test.
			mockFs := NewMockfatFileFs(mockCtrl)

			f := tt.fields.file(mockFs)
			gotN, err := f.Read(make([]byte, 4))

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotN != 0 {
				t.Errorf("File.Read() = %v, want 0", gotN)
			}
		})
	}
}

func TestFile_ReadAt(t *testing.T) {
	type args struct {
		p   []byte
		off int64
	}
	type mock struct {
		readAtResult []byte
		readAtError  error
	}
	tests := []struct {
		name     string
		fields   fileTestFields
		args     args
		mockData mock
		wantN    int
		wantErr  error
	}{
		{
			name: "simple file",
			mockData: mock{
				readAtResult: []byte("ell0 World"),
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 1,
			},
			wantN: 10,
		},
		{
			name: "error while reading",
			mockData: mock{
				readAtError: fileTestsError,
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 11),
				off: 1,
			},
			wantN:   0,
			wantErr: fileTestsError,
		},
		{
			name: "not enough data (EOF)",
			mockData: mock{
				readAtResult: []byte("ell0"),
				readAtError:  io.EOF,
			},
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 10),
				off: 1,
			},
			wantN:   4,
			wantErr: io.EOF,
		},
		{
			name: "negative offset",
			fields: fileTestFields{
				firstCluster: 3,
				stat:         fakeFileInfo{fileSize: 11},
			},
			args: args{
				p:   make([]byte, 8),
				off: -4,
			},
			wantN:   0,
			wantErr: afero.ErrOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)
			mockFs.EXPECT().
				readFileAt(tt.fields.firstCluster, tt.fields.stat.Size(), tt.args.off, int64(len(tt.args.p))).
				MaxTimes(1).
				Return(tt.mockData.readAtResult, tt.mockData.readAtError)

			f := tt.fields.file(mockFs)
			gotN, err := f.ReadAt(tt.args.p, tt.args.off)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.ReadAt() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if gotN != tt.wantN {
				t.Errorf("File.ReadAt() = %v, want %v", gotN, tt.wantN)
			}

			// ReadAt never moves the offset.
			if f.offset != tt.fields.offset {
				t.Errorf("File.offset = %v, want %v", f.offset, tt.fields.offset)
			}
		})
	}
}

func TestFile_Seek(t *testing.T) {
	type args struct {
		offset int64
		whence int
	}
	sized := entryFileInfo{entry: Entry{EntryHeader: EntryHeader{FileSize: 5000}}}
	tests := []struct {
		name    string
		fields  fileTestFields
		args    args
		want    int64
		wantErr error
	}{
		{
			name: "Seek from start regardless of previous offset",
			fields: fileTestFields{
				offset: 1234,
				stat:   sized,
			},
			args: args{
				offset: 100,
				whence: io.SeekStart,
			},
			want: 100,
		},
		{
			name: "Seek from last offset",
			fields: fileTestFields{
				offset: 1000,
				stat:   sized,
			},
			args: args{
				offset: 200,
				whence: io.SeekCurrent,
			},
			want: 1200,
		},
		{
			name: "Seek from the end",
			fields: fileTestFields{
				offset: 1000,
				stat:   sized,
			},
			args: args{
				offset: -200,
				whence: io.SeekEnd,
			},
			want: 4800,
		},
		{
			name: "Seek before the start",
			fields: fileTestFields{
				offset: 1000,
				stat:   sized,
			},
			args: args{
				offset: -1,
				whence: io.SeekStart,
			},
			want:    1000,
			wantErr: afero.ErrOutOfRange,
		},
		{
			name: "Seek after the end",
			fields: fileTestFields{
				offset: 1000,
				stat:   sized,
			},
			args: args{
				offset: 1,
				whence: io.SeekEnd,
			},
			want:    1000,
			wantErr: afero.ErrOutOfRange,
		},
		{
			name: "invalid whence",
			fields: fileTestFields{
				offset: 1000,
				stat:   sized,
			},
			args: args{
				offset: 1,
				whence: 42,
			},
			want:    1000,
			wantErr: syscall.EINVAL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fields.file(nil)
			got, err := f.Seek(tt.args.offset, tt.args.whence)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Seek() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr == nil && got != tt.want {
				t.Errorf("File.Seek() = %v, want %v", got, tt.want)
			}

			// f.offset must be set also, or stay the same on errors.
			if f.offset != tt.want {
				t.Errorf("File.offset = %v, want %v", f.offset, tt.want)
			}
		})
	}
}

func TestFile_Write(t *testing.T) {
	f := fileTestFields{path: "/README.TXT", stat: fakeFileInfo{fileSize: 11}}.file(nil)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "Write",
			call: func() error {
				_, err := f.Write([]byte("a"))
				return err
			},
		},
		{
			name: "WriteAt",
			call: func() error {
				_, err := f.WriteAt([]byte("a"), 3)
				return err
			},
		},
		{
			name: "WriteString",
			call: func() error {
				_, err := f.WriteString("a")
				return err
			},
		},
		{
			name: "Truncate",
			call: func() error {
				return f.Truncate(0)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrReadOnly) {
				t.Errorf("File.%s() error = %v, wantErr %v", tt.name, err, ErrReadOnly)
			}
			if !errors.Is(err, syscall.EROFS) {
				t.Errorf("File.%s() error = %v, wantErr %v", tt.name, err, syscall.EROFS)
			}
		})
	}
}

func TestFile_Readdir(t *testing.T) {
	type args struct {
		count int
	}
	type mock struct {
		readDirResult []Entry
		readDirError  error
	}
	tests := []struct {
		name       string
		fields     fileTestFields
		args       args
		mockData   mock
		want       []os.FileInfo
		wantOffset int64
		wantErr    error
	}{
		{
			name: "Read dir",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 2,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []Entry{
					// Use the name to identify them in the results, they are just tested by equality.
					namedEntry("1"),
					namedEntry("2"),
					namedEntry("3"),
				},
			},
			want: []os.FileInfo{
				entryFileInfo{namedEntry("1")},
				entryFileInfo{namedEntry("2")},
				entryFileInfo{namedEntry("3")},
			},
			wantOffset: 3,
		},
		{
			name: "Read dir with count arg",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 7,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []Entry{
					namedEntry("1"),
					namedEntry("2"),
					namedEntry("3"),
				},
			},
			want: []os.FileInfo{
				entryFileInfo{namedEntry("1")},
				entryFileInfo{namedEntry("2")},
			},
			wantOffset: 2,
		},
		{
			name: "Continue reading the dir",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 7,
				offset:       2,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []Entry{
					namedEntry("1"),
					namedEntry("2"),
					namedEntry("3"),
				},
			},
			want: []os.FileInfo{
				entryFileInfo{namedEntry("3")},
			},
			wantOffset: 3,
		},
		{
			name: "Nothing left",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 7,
				offset:       3,
			},
			args: args{
				count: 2,
			},
			mockData: mock{
				readDirResult: []Entry{
					namedEntry("1"),
					namedEntry("2"),
					namedEntry("3"),
				},
			},
			want:       nil,
			wantOffset: 3,
			wantErr:    io.EOF,
		},
		{
			name: "Error while reading",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 7,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirError: fileTestsError,
			},
			want:    nil,
			wantErr: fileTestsError,
		},
		{
			name: "No dir",
			fields: fileTestFields{
				path:        "/test",
				isDirectory: false,
			},
			args: args{
				count: -1,
			},
			mockData: mock{},
			want:     nil,
			wantErr:  syscall.ENOTDIR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)

			if tt.fields.isDirectory {
				mockFs.EXPECT().
					readDir(tt.fields.firstCluster).
					MaxTimes(1).
					Return(tt.mockData.readDirResult, tt.mockData.readDirError)
			}

			f := tt.fields.file(mockFs)
			got, err := f.Readdir(tt.args.count)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Readdir() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("File.Readdir() = %v, want %v", got, tt.want)
			}
			if f.offset != tt.wantOffset {
				t.Errorf("File.offset = %v, want %v", f.offset, tt.wantOffset)
			}
		})
	}
}

func TestFile_Readdirnames(t *testing.T) {
	type args struct {
		count int
	}
	type mock struct {
		readDirResult []Entry
		readDirError  error
	}
	tests := []struct {
		name     string
		fields   fileTestFields
		args     args
		mockData mock
		want     []string
		wantErr  error
	}{
		{
			name: "Read dir",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 2,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []Entry{
					namedEntry("1"),
					namedEntry("2"),
					namedEntry("3"),
				},
			},
			want: []string{"1", "2", "3"},
		},
		{
			name: "Short names are used without a long name",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 2,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirResult: []Entry{
					{
						EntryHeader: EntryHeader{
							Name:      [11]byte{'R', 'E', 'A', 'D', 'M', 'E', ' ', ' ', 'T', 'X', 'T'},
							Attribute: AttrArchive,
						},
						Kind: KindFile,
					},
				},
			},
			want: []string{"README.TXT"},
		},
		{
			name: "Error while reading",
			fields: fileTestFields{
				path:         "/test",
				isDirectory:  true,
				firstCluster: 2,
			},
			args: args{
				count: -1,
			},
			mockData: mock{
				readDirError: fileTestsError,
			},
			want:    nil,
			wantErr: fileTestsError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			mockFs := NewMockfatFileFs(mockCtrl)
			mockFs.EXPECT().
				readDir(tt.fields.firstCluster).
				MaxTimes(1).
				Return(tt.mockData.readDirResult, tt.mockData.readDirError)

			f := tt.fields.file(mockFs)
			got, err := f.Readdirnames(tt.args.count)

			mockCtrl.Finish()

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("File.Readdirnames() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("File.Readdirnames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_Stat(t *testing.T) {
	info := fakeFileInfo{someData: "stat", fileSize: 3}
	f := fileTestFields{stat: info}.file(nil)

	got, err := f.Stat()
	if err != nil {
		t.Errorf("File.Stat() error = %v", err)
		return
	}
	if !reflect.DeepEqual(got, info) {
		t.Errorf("File.Stat() = %v, want %v", got, info)
	}
	if f.Name() != "stat" {
		t.Errorf("File.Name() = %v, want %v", f.Name(), "stat")
	}
}

func TestNewFile(t *testing.T) {
	entry := &Entry{
		EntryHeader: EntryHeader{
			Name:           [11]byte{'S', 'Y', 'S', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '},
			Attribute:      AttrDirectory | AttrHidden | AttrSystem | AttrReadOnly,
			FirstClusterHI: 1,
			FirstClusterLO: 2,
		},
		Kind: KindDirectory,
	}

	f := newFile(nil, "/SYS", entry)
	want := &File{
		path:         "/SYS",
		isDirectory:  true,
		isReadOnly:   true,
		isHidden:     true,
		isSystem:     true,
		firstCluster: 0x10002,
		stat:         entry.FileInfo(),
	}

	if !reflect.DeepEqual(f, want) {
		t.Errorf("newFile() = %v, want %v", f, want)
	}
}
