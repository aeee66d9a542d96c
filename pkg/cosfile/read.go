package cosfile

import (
	"io"

	"github.com/marmos91/cosfs/pkg/store"
)

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

// ReadAt implements io.ReaderAt. It does not move the offset.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.readable(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, store.InvalidArgument("negative offset %d", off)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= f.info.Size {
		return 0, io.EOF
	}

	data, err := f.cache.read(f.ctx, off, len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker. Seeking never issues a request.
//
// In write mode only queries of the current position are allowed.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, store.InvalidArgument("seek on closed file %s", f.Path())
	}

	if f.mode == ModeWrite {
		if offset == 0 && whence == io.SeekCurrent {
			return f.written, nil
		}
		return 0, store.NotImplemented("seek is only supported in read mode", f.Path())
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.offset + offset
	case io.SeekEnd:
		abs = f.info.Size + offset
	default:
		return 0, store.InvalidArgument("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, store.InvalidArgument("negative position %d", abs)
	}

	f.offset = abs
	return abs, nil
}

// Tell returns the current position.
func (f *File) Tell() int64 {
	if f.mode == ModeWrite {
		return f.written
	}
	return f.offset
}

func (f *File) readable() error {
	if f.mode != ModeRead {
		return store.InvalidArgument("file not opened for reading: %s", f.Path())
	}
	if f.closed {
		return store.InvalidArgument("read on closed file %s", f.Path())
	}
	return nil
}
