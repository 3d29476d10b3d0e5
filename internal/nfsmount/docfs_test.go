package nfsmount

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structfs/yamlfs/internal/engine"
)

const testDoc = `name: yamlfs
port: 8080
nested:
  inner: value
list:
  - first
  - second
`

func newTestFS(t *testing.T) (*DocFS, string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(src, []byte(testDoc), 0o644))
	e, err := engine.New(engine.Config{SourcePath: src})
	require.NoError(t, err)
	return NewDocFS(e, nil), src
}

func TestLstat(t *testing.T) {
	fs, _ := newTestFS(t)

	info, err := fs.Lstat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = fs.Lstat("/nested")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "nested", info.Name())

	info, err = fs.Lstat("/name")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, int64(len("yamlfs")), info.Size())

	_, err = fs.Lstat("/absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	var perr *os.PathError
	assert.ErrorAs(t, err, &perr)
}

func TestReadDir(t *testing.T) {
	fs, _ := newTestFS(t)

	infos, err := fs.ReadDir("/")
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	assert.Equal(t, []string{"name", "port", "nested", "list"}, names)

	infos, err = fs.ReadDir("/list")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "0", infos[0].Name())
	assert.False(t, infos[0].IsDir())

	_, err = fs.ReadDir("/absent")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_Read(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.Open("/nested/inner")
	require.NoError(t, err)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "value", string(content))

	// Read handles reject writes.
	_, err = f.Write([]byte("x"))
	assert.Error(t, err)
}

func TestOpen_Missing(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.Open("/absent")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenFile_WriteCommitsOnClose(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.OpenFile("/answer", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("42\n"))
	require.NoError(t, err)

	// Not visible until Close.
	_, err = fs.Lstat("/answer")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, f.Close())

	rf, err := fs.Open("/answer")
	require.NoError(t, err)
	content, err := io.ReadAll(rf)
	require.NoError(t, err)
	assert.Equal(t, "42", string(content))
}

func TestOpenFile_NoCreateOnMissing(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.OpenFile("/absent", os.O_WRONLY, 0o644)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenFile_TruncateWithoutWriteIsNoop(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.OpenFile("/name", os.O_WRONLY, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(0))
	require.NoError(t, f.Close())

	rf, err := fs.Open("/name")
	require.NoError(t, err)
	content, err := io.ReadAll(rf)
	require.NoError(t, err)
	assert.Equal(t, "yamlfs", string(content))
}

func TestOpenFile_PartialOverwritePreservesTail(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.OpenFile("/list/1", os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("SE"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rf, err := fs.Open("/list/1")
	require.NoError(t, err)
	content, err := io.ReadAll(rf)
	require.NoError(t, err)
	assert.Equal(t, "SEcond", string(content))
}

func TestCreate(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.Create("/fresh")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := fs.Lstat("/fresh")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, int64(0), info.Size())
}

func TestMkdirAll(t *testing.T) {
	fs, _ := newTestFS(t)

	require.NoError(t, fs.MkdirAll("/a/b/c", 0o755))
	info, err := fs.Lstat("/a/b/c")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing prefixes are fine.
	require.NoError(t, fs.MkdirAll("/a/b", 0o755))
	require.NoError(t, fs.MkdirAll("/nested/sub", 0o755))
}

func TestRemoveAndRename(t *testing.T) {
	fs, _ := newTestFS(t)

	require.NoError(t, fs.Remove("/name"))
	_, err := fs.Lstat("/name")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, fs.Rename("/nested", "/relocated"))
	info, err := fs.Lstat("/relocated")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = fs.Lstat("/nested")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeekAndReadAt(t *testing.T) {
	fs, _ := newTestFS(t)

	f, err := fs.Open("/name")
	require.NoError(t, err)

	pos, err := f.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	if err != nil {
		require.ErrorIs(t, err, io.EOF)
	}
	assert.Equal(t, "mlfs", string(buf[:n]))

	n, err = f.ReadAt(buf[:2], 0)
	require.NoError(t, err)
	assert.Equal(t, "ya", string(buf[:n]))
}

func TestCapabilitiesAndUnsupported(t *testing.T) {
	fs, _ := newTestFS(t)

	caps := fs.Capabilities()
	assert.NotZero(t, caps)

	_, err := fs.TempFile("", "x")
	assert.Error(t, err)
	assert.Error(t, fs.Symlink("a", "b"))
	_, err = fs.Readlink("a")
	assert.Error(t, err)
}
