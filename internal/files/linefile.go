// Package files wraps a single file handle behind an open / read lines /
// close lifecycle.
//
// Lines returns a lazy sequence over the handle's shared cursor. Calling it
// again does NOT restart from the beginning of the file: every sequence
// continues from wherever the previous read stopped. Treat repeated calls as
// continuations, not re-reads.
package files

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

const defaultPerm os.FileMode = 0o644

// LineFile reads a file line by line through one handle.
// It is not safe for concurrent use.
type LineFile struct {
	path   string
	mode   Mode
	fs     billy.Basic
	perm   os.FileMode
	logger *slog.Logger

	file    billy.File
	rd      *bufio.Reader
	cleanup runtime.Cleanup
}

// Option configures a LineFile.
type Option func(*LineFile)

// WithMode sets the open mode. The default is ModeRead.
func WithMode(m Mode) Option {
	return func(f *LineFile) { f.mode = m }
}

// WithFilesystem resolves the path against fsys instead of the OS filesystem.
func WithFilesystem(fsys billy.Basic) Option {
	return func(f *LineFile) {
		if fsys != nil {
			f.fs = fsys
		}
	}
}

// WithPerm sets the permission bits used when a mode creates the file.
func WithPerm(perm os.FileMode) Option {
	return func(f *LineFile) { f.perm = perm }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(f *LineFile) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a LineFile for path. No I/O happens until Open.
func New(path string, opts ...Option) *LineFile {
	f := &LineFile{
		path:   path,
		mode:   ModeRead,
		fs:     osfs.Default,
		perm:   defaultPerm,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the path given to New.
func (f *LineFile) Path() string { return f.path }

// Mode returns the open mode.
func (f *LineFile) Mode() Mode { return f.mode }

// IsOpen reports whether a handle is currently held.
func (f *LineFile) IsOpen() bool { return f.file != nil }

// Open acquires the handle. Errors from the filesystem are wrapped, so
// errors.Is(err, fs.ErrNotExist) and errors.Is(err, fs.ErrPermission) work.
//
// A handle that is never closed is released once the LineFile becomes
// unreachable, but that happens at the garbage collector's pace; call Close
// or use Use.
func (f *LineFile) Open() error {
	if f.file != nil {
		return fmt.Errorf("files: open %q: %w", f.path, ErrAlreadyOpen)
	}
	if !f.mode.valid() {
		return fmt.Errorf("files: open %q: %w: %s", f.path, ErrInvalidMode, f.mode)
	}

	h, err := f.fs.OpenFile(f.path, f.mode.flag(), f.perm)
	if err != nil {
		return fmt.Errorf("files: open %q (%s): %w", f.path, f.mode, err)
	}
	f.file = h
	if f.mode.Readable() {
		f.rd = bufio.NewReader(h)
	}
	f.cleanup = runtime.AddCleanup(f, releaseLeaked, leakedHandle{
		file:   h,
		path:   f.path,
		logger: f.logger,
	})

	f.logger.Debug("opened file", "path", f.path, "mode", f.mode.String())
	return nil
}

// ReadLine returns the next raw line, terminator included. The last line of
// a file is returned even without a terminator. At end of input it returns
// io.EOF.
func (f *LineFile) ReadLine() (string, error) {
	if f.file == nil {
		return "", fmt.Errorf("files: read %q: %w", f.path, ErrNotOpen)
	}
	if f.rd == nil {
		return "", fmt.Errorf("files: read %q (%s): %w", f.path, f.mode, ErrNotReadable)
	}

	line, err := f.rd.ReadString('\n')
	switch {
	case err == nil:
		return line, nil
	case errors.Is(err, io.EOF):
		if line != "" {
			return line, nil
		}
		return "", io.EOF
	default:
		return "", fmt.Errorf("files: read %q: %w", f.path, err)
	}
}

// Lines returns a lazy sequence of raw lines starting at the current cursor.
//
// Every sequence shares the one cursor of the handle. After taking one line
// from a first sequence, a second call to Lines yields the line after it,
// not the first line of the file. End of input ends the sequence; any other
// failure, including a closed handle, is yielded once as the error.
func (f *LineFile) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := f.ReadLine()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// WriteString writes s as-is. In ModeReadWrite the text lands at the line
// cursor rather than after the bytes the reader buffered ahead.
func (f *LineFile) WriteString(s string) (int, error) {
	if f.file == nil {
		return 0, fmt.Errorf("files: write %q: %w", f.path, ErrNotOpen)
	}
	if !f.mode.Writable() {
		return 0, fmt.Errorf("files: write %q (%s): %w", f.path, f.mode, ErrNotWritable)
	}

	if f.rd != nil && f.rd.Buffered() > 0 {
		if _, err := f.file.Seek(-int64(f.rd.Buffered()), io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("files: seek %q: %w", f.path, err)
		}
		f.rd.Reset(f.file)
	}

	n, err := io.WriteString(f.file, s)
	if err != nil {
		return n, fmt.Errorf("files: write %q: %w", f.path, err)
	}
	return n, nil
}

// Close releases the handle. Closing a LineFile without a handle returns
// ErrNotOpen.
func (f *LineFile) Close() error {
	if f.file == nil {
		return fmt.Errorf("files: close %q: %w", f.path, ErrNotOpen)
	}
	f.cleanup.Stop()

	err := f.file.Close()
	f.file = nil
	f.rd = nil
	if err != nil {
		return fmt.Errorf("files: close %q: %w", f.path, err)
	}
	f.logger.Debug("closed file", "path", f.path)
	return nil
}

// Use opens path, hands the open LineFile to fn and closes it on every exit
// path. A close error is reported only when fn itself succeeded.
func Use(path string, fn func(*LineFile) error, opts ...Option) (err error) {
	f := New(path, opts...)
	if err := f.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// leakedHandle must not point back at its LineFile, or the cleanup would
// keep the LineFile reachable forever.
type leakedHandle struct {
	file   billy.File
	path   string
	logger *slog.Logger
}

func releaseLeaked(h leakedHandle) {
	if err := h.file.Close(); err != nil {
		h.logger.Warn("closing leaked file handle", "path", h.path, "error", err)
		return
	}
	h.logger.Warn("released file handle that was never closed", "path", h.path)
}
