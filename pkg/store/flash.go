package store

import (
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// MemFlash keeps the flash area in memory. BusyPolls makes every
// operation report busy for that many polls.
type MemFlash struct {
	BusyPolls int

	data   []byte
	busy   int
	erases int
	writes int
	lock   sync.Mutex
}

// NewMemFlash creates an erased MemFlash.
func NewMemFlash(size int) *MemFlash {
	f := &MemFlash{data: make([]byte, size)}
	fillErased(f.data)
	return f
}

func fillErased(p []byte) {
	for i := range p {
		p[i] = Erased
	}
}

// ReadAt implements Flash.
func (f *MemFlash) ReadAt(p []byte, off int64) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	fillErased(p)
	if off >= int64(len(f.data)) {
		return len(p), nil
	}
	copy(p, f.data[off:])
	return len(p), nil
}

// Erase implements Flash.
func (f *MemFlash) Erase() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	fillErased(f.data)
	f.erases++
	f.busy = f.BusyPolls
	return nil
}

// Write implements Flash.
func (f *MemFlash) Write(p []byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(p) > len(f.data) {
		return io.ErrShortWrite
	}
	copy(f.data, p)
	f.writes++
	f.busy = f.BusyPolls
	return nil
}

// Busy implements Flash.
func (f *MemFlash) Busy() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.busy > 0 {
		f.busy--
		return true
	}
	return false
}

// Counts returns the number of erase and write operations.
func (f *MemFlash) Counts() (erases, writes int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.erases, f.writes
}

// FileFlash persists the flash area in a single file.
type FileFlash struct {
	Path string
	Size int
}

// ReadAt implements Flash. A missing file reads as erased.
func (f *FileFlash) ReadAt(p []byte, off int64) (int, error) {
	fillErased(p)
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return len(p), nil
	}
	if err != nil {
		return 0, err
	}
	if off < int64(len(data)) {
		copy(p, data[off:])
	}
	return len(p), nil
}

// Erase implements Flash.
func (f *FileFlash) Erase() error {
	p := make([]byte, f.Size)
	fillErased(p)
	return f.Write(p)
}

// Write implements Flash. The file is replaced atomically.
func (f *FileFlash) Write(p []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(p); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// Busy implements Flash. File operations complete synchronously.
func (f *FileFlash) Busy() bool {
	return false
}

// OpenFlash creates a Flash from a URL: mem:, file:/path or sqlite:/path.
func OpenFlash(flashURL string, size int) (Flash, error) {
	u, err := url.Parse(flashURL)
	if err != nil {
		return nil, err
	}
	path := u.Opaque
	if path == "" {
		path = u.Path
	}
	switch u.Scheme {
	case "mem", "":
		return NewMemFlash(size), nil
	case "file":
		return &FileFlash{Path: path, Size: size}, nil
	case "sqlite":
		return OpenSQLFlash(path, size)
	}
	return nil, ErrUnknownBackend
}
