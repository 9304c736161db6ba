package page

import (
	"os"
	"path/filepath"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

// Manager is NanoDB's File Manager (spec §4.1): it owns a base directory
// and opens/creates/deletes the fixed-size-page files that live under it.
// Every concrete page access (load/save/page-count) is a method on File
// itself; Manager is the factory and directory-naming authority.
type Manager struct {
	baseDir string
}

// NewManager returns a Manager rooted at baseDir. The directory is created
// if it doesn't already exist.
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, nerr.Wrap(nerr.Storage, err, "create base directory %s", baseDir)
	}
	return &Manager{baseDir: baseDir}, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.baseDir, name)
}

// CreateFile creates a new file of the given type and page size, writing
// page 0's type/size header immediately. Fails with nerr.Storage if a file
// of that name already exists.
func (m *Manager) CreateFile(name string, typ FileType, pageSize int) (*File, error) {
	sizeByte, err := EncodePageSizeLog2(pageSize)
	if err != nil {
		return nil, err
	}

	p := m.path(name)
	osf, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, nerr.ErrFileExists(name)
		}
		return nil, nerr.Wrap(nerr.Storage, err, "create file %s", name)
	}

	f := &File{Name: name, Type: typ, PageSize: pageSize, osFile: osf}
	header := make([]byte, pageSize)
	header[offFileType] = byte(typ)
	header[offPageSize] = sizeByte
	if _, err := osf.WriteAt(header, 0); err != nil {
		osf.Close()
		return nil, nerr.Wrap(nerr.Storage, err, "write header page of %s", name)
	}
	f.numPages = 1
	return f, nil
}

// OpenFile opens an existing file, reading back its type and page size from
// page 0. Fails with nerr.Storage if the file doesn't exist.
func (m *Manager) OpenFile(name string) (*File, error) {
	p := m.path(name)
	osf, err := os.OpenFile(p, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nerr.ErrFileNotFound(name)
		}
		return nil, nerr.Wrap(nerr.Storage, err, "open file %s", name)
	}

	info, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, nerr.Wrap(nerr.Storage, err, "stat file %s", name)
	}

	header := make([]byte, 2)
	if _, err := osf.ReadAt(header, 0); err != nil {
		osf.Close()
		return nil, nerr.Wrap(nerr.Storage, err, "read header page of %s", name)
	}
	typ := FileType(header[offFileType])
	pageSize := DecodePageSizeLog2(header[offPageSize])
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		osf.Close()
		return nil, nerr.ErrBadPageSize(pageSize)
	}

	f := &File{Name: name, Type: typ, PageSize: pageSize, osFile: osf}
	f.numPages = uint32(info.Size() / int64(pageSize))
	if f.numPages == 0 {
		f.numPages = 1
	}
	return f, nil
}

// CloseFile closes f's underlying handle.
func (m *Manager) CloseFile(f *File) error {
	return f.Close()
}

// DeleteFile closes and removes f's underlying file from disk.
func (m *Manager) DeleteFile(f *File) error {
	name := f.Name
	_ = f.Close()
	if err := os.Remove(m.path(name)); err != nil {
		return nerr.Wrap(nerr.Storage, err, "delete file %s", name)
	}
	return nil
}

// GetNumPages returns the number of pages allocated in f.
func (m *Manager) GetNumPages(f *File) uint32 {
	return f.NumPages()
}

// LoadPage reads page no of f, optionally materializing a new zeroed page
// if no is beyond the current end of file and create is true.
func (m *Manager) LoadPage(f *File, no uint32, create bool) (*Page, error) {
	return f.LoadPage(no, create)
}

// SavePage writes p back to its file.
func (m *Manager) SavePage(f *File, p *Page) error {
	return f.SavePage(p)
}
