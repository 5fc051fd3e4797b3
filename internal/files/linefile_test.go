package files

import (
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memWithFile(t *testing.T, name, content string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, name, []byte(content), 0o644))
	return fsys
}

// first takes one element from seq and stops it.
func first(t *testing.T, seq iter.Seq2[string, error]) (string, bool) {
	t.Helper()
	for line, err := range seq {
		require.NoError(t, err)
		return line, true
	}
	return "", false
}

func collect(t *testing.T, seq iter.Seq2[string, error]) []string {
	t.Helper()
	var out []string
	for line, err := range seq {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

func TestLines_ContinuesAcrossSequences(t *testing.T) {
	fsys := memWithFile(t, "test012.txt", "%d\n%i\n%s\n")
	f := New("test012.txt", WithFilesystem(fsys))
	require.NoError(t, f.Open())

	line, ok := first(t, f.Lines())
	require.True(t, ok)
	assert.Equal(t, "%d\n", line)

	line, ok = first(t, f.Lines())
	require.True(t, ok)
	assert.Equal(t, "%i\n", line)

	assert.Equal(t, []string{"%s\n"}, collect(t, f.Lines()))
	require.NoError(t, f.Close())
}

func TestLines_UnconsumedSequenceSharesCursor(t *testing.T) {
	fsys := memWithFile(t, "a.txt", "one\ntwo\n")
	f := New("a.txt", WithFilesystem(fsys))
	require.NoError(t, f.Open())
	defer f.Close()

	_ = f.Lines()
	second := f.Lines()

	line, ok := first(t, second)
	require.True(t, ok)
	assert.Equal(t, "one\n", line)
}

func TestLines_EmptyFile(t *testing.T) {
	fsys := memWithFile(t, "empty.txt", "")
	err := Use("empty.txt", func(f *LineFile) error {
		assert.Empty(t, collect(t, f.Lines()))
		return nil
	}, WithFilesystem(fsys))
	require.NoError(t, err)
}

func TestLines_UnterminatedLastLine(t *testing.T) {
	fsys := memWithFile(t, "tail.txt", "a\r\nb\n\nlast")
	err := Use("tail.txt", func(f *LineFile) error {
		assert.Equal(t, []string{"a\r\n", "b\n", "\n", "last"}, collect(t, f.Lines()))
		return nil
	}, WithFilesystem(fsys))
	require.NoError(t, err)
}

func TestLines_NotOpen(t *testing.T) {
	f := New("missing.txt", WithFilesystem(memfs.New()))

	var errs []error
	for _, err := range f.Lines() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNotOpen)
}

type failingReadFS struct{ billy.Filesystem }

func (f failingReadFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	h, err := f.Filesystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return failingReadFile{h}, nil
}

type failingReadFile struct{ billy.File }

func (failingReadFile) Read([]byte) (int, error) { return 0, assert.AnError }

func TestLines_ReadFailureYieldedOnce(t *testing.T) {
	fsys := failingReadFS{memWithFile(t, "a.txt", "a\nb\n")}
	f := New("a.txt", WithFilesystem(fsys))
	require.NoError(t, f.Open())
	defer f.Close()

	var errs []error
	for line, err := range f.Lines() {
		assert.Empty(t, line)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], assert.AnError)
	assert.NotErrorIs(t, errs[0], io.EOF)
	assert.Contains(t, errs[0].Error(), `files: read "a.txt"`)
}

func TestLines_DirectoryOnDisk(t *testing.T) {
	f := New(t.TempDir())
	require.NoError(t, f.Open())
	defer f.Close()

	var errs []error
	for _, err := range f.Lines() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
	assert.NotErrorIs(t, errs[0], io.EOF)
}

func TestReadLine(t *testing.T) {
	fsys := memWithFile(t, "r.txt", "x\ny")
	f := New("r.txt", WithFilesystem(fsys))
	require.NoError(t, f.Open())
	defer f.Close()

	line, err := f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "x\n", line)

	line, err = f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "y", line)

	_, err = f.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	_, err = f.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_WriteOnlyMode(t *testing.T) {
	fsys := memfs.New()
	f := New("out.txt", WithFilesystem(fsys), WithMode(ModeWrite))
	require.NoError(t, f.Open())
	defer f.Close()

	_, err := f.ReadLine()
	assert.ErrorIs(t, err, ErrNotReadable)
}

func TestOpen_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		f := New("nope.txt", WithFilesystem(memfs.New()))
		err := f.Open()
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.False(t, f.IsOpen())
	})

	t.Run("missing path on disk", func(t *testing.T) {
		f := New(filepath.Join(t.TempDir(), "nope.txt"))
		assert.ErrorIs(t, f.Open(), fs.ErrNotExist)
	})

	t.Run("already open", func(t *testing.T) {
		fsys := memWithFile(t, "a.txt", "a\n")
		f := New("a.txt", WithFilesystem(fsys))
		require.NoError(t, f.Open())
		defer f.Close()
		assert.ErrorIs(t, f.Open(), ErrAlreadyOpen)
	})

	t.Run("invalid mode", func(t *testing.T) {
		fsys := memWithFile(t, "a.txt", "a\n")
		f := New("a.txt", WithFilesystem(fsys), WithMode(Mode(42)))
		assert.ErrorIs(t, f.Open(), ErrInvalidMode)
		assert.False(t, f.IsOpen())
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		p := filepath.Join(t.TempDir(), "locked.txt")
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o000))
		f := New(p)
		assert.ErrorIs(t, f.Open(), fs.ErrPermission)
	})
}

func TestClose(t *testing.T) {
	fsys := memWithFile(t, "a.txt", "a\n")
	f := New("a.txt", WithFilesystem(fsys))

	assert.ErrorIs(t, f.Close(), ErrNotOpen)

	require.NoError(t, f.Open())
	assert.True(t, f.IsOpen())
	require.NoError(t, f.Close())
	assert.False(t, f.IsOpen())

	_, err := f.ReadLine()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, f.Close(), ErrNotOpen)

	// a closed LineFile can be opened again and starts from the top
	require.NoError(t, f.Open())
	line, ok := first(t, f.Lines())
	require.True(t, ok)
	assert.Equal(t, "a\n", line)
	require.NoError(t, f.Close())
}

func TestWriteModes(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "log.txt")

	err := Use(p, func(f *LineFile) error {
		_, err := f.WriteString("first\n")
		return err
	}, WithMode(ModeWrite))
	require.NoError(t, err)

	err = Use(p, func(f *LineFile) error {
		_, err := f.WriteString("second\n")
		return err
	}, WithMode(ModeAppend), WithFilesystem(osfs.Default))
	require.NoError(t, err)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(b))

	err = Use(p, func(f *LineFile) error {
		_, err := f.WriteString("fresh\n")
		return err
	}, WithMode(ModeWrite))
	require.NoError(t, err)

	b, err = os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(b))
}

func TestWriteModes_CreateParentDirs(t *testing.T) {
	for _, m := range []Mode{ModeWrite, ModeAppend} {
		p := filepath.Join(t.TempDir(), "missing", "dir", "x.txt")
		err := Use(p, func(f *LineFile) error {
			_, err := f.WriteString("a\n")
			return err
		}, WithMode(m))
		require.NoError(t, err, m.String())

		b, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "a\n", string(b))
	}

	// reading never creates anything
	p := filepath.Join(t.TempDir(), "missing", "x.txt")
	assert.ErrorIs(t, New(p).Open(), fs.ErrNotExist)
	_, err := os.Stat(filepath.Dir(p))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWriteString_ReadOnly(t *testing.T) {
	fsys := memWithFile(t, "a.txt", "a\n")
	err := Use("a.txt", func(f *LineFile) error {
		_, err := f.WriteString("b\n")
		return err
	}, WithFilesystem(fsys))
	assert.ErrorIs(t, err, ErrNotWritable)

	_, err = New("a.txt", WithFilesystem(fsys)).WriteString("b\n")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestWriteString_ReadWriteWritesAtCursor(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rw.txt")
	require.NoError(t, os.WriteFile(p, []byte("aa\nbb\ncc\n"), 0o644))

	err := Use(p, func(f *LineFile) error {
		line, err := f.ReadLine()
		if err != nil {
			return err
		}
		assert.Equal(t, "aa\n", line)
		if _, err := f.WriteString("XX\n"); err != nil {
			return err
		}
		line, err = f.ReadLine()
		if err != nil {
			return err
		}
		assert.Equal(t, "cc\n", line)
		return nil
	}, WithMode(ModeReadWrite))
	require.NoError(t, err)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "aa\nXX\ncc\n", string(b))
}

func TestUse_OpenErrorSkipsFn(t *testing.T) {
	called := false
	err := Use("nope.txt", func(*LineFile) error {
		called = true
		return nil
	}, WithFilesystem(memfs.New()))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, called)
}

func TestUse_ClosesOnFnError(t *testing.T) {
	var closed atomic.Int32
	fsys := countingFS{Filesystem: memWithFile(t, "a.txt", "a\n"), closed: &closed}

	boom := assert.AnError
	err := Use("a.txt", func(*LineFile) error { return boom }, WithFilesystem(fsys))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), closed.Load())
}

type countingFS struct {
	billy.Filesystem
	closed *atomic.Int32
}

func (c countingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := c.Filesystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, closed: c.closed}, nil
}

type countingFile struct {
	billy.File
	closed *atomic.Int32
}

func (c *countingFile) Close() error {
	c.closed.Add(1)
	return c.File.Close()
}

//go:noinline
func openAndDrop(t *testing.T, fsys billy.Basic) {
	f := New("a.txt", WithFilesystem(fsys))
	require.NoError(t, f.Open())
}

func TestLeakedHandleIsReleased(t *testing.T) {
	var closed atomic.Int32
	fsys := countingFS{Filesystem: memWithFile(t, "a.txt", "a\n"), closed: &closed}

	openAndDrop(t, fsys)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return closed.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExplicitCloseReleasesOnce(t *testing.T) {
	var closed atomic.Int32
	fsys := countingFS{Filesystem: memWithFile(t, "a.txt", "a\n"), closed: &closed}

	func() {
		f := New("a.txt", WithFilesystem(fsys))
		require.NoError(t, f.Open())
		require.NoError(t, f.Close())
	}()

	for range 5 {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(1), closed.Load())
}
