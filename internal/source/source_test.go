package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUTF8StripsBOM(t *testing.T) {
	t.Parallel()

	text, enc, ok := Decode([]byte("\xEF\xBB\xBFAttribute VB_Name = \"modMain\""))
	require.True(t, ok)
	assert.Equal(t, "utf-8", enc)
	assert.Equal(t, `Attribute VB_Name = "modMain"`, text)
}

func TestDecodeWindows1252(t *testing.T) {
	t.Parallel()

	// 0x93/0x94 are curly quotes in Windows-1252 and invalid UTF-8.
	text, enc, ok := Decode([]byte{'M', 's', 'g', 0x93, 'h', 'i', 0x94})
	require.True(t, ok)
	assert.Equal(t, "windows-1252", enc)
	assert.Equal(t, "Msg“hi”", text)
}

func TestDecodeLatin1Fallback(t *testing.T) {
	t.Parallel()

	// 0x81 is unassigned in Windows-1252 so Latin-1 takes over.
	text, enc, ok := Decode([]byte{'a', 0x81, 0xE9})
	require.True(t, ok)
	assert.Equal(t, "iso-8859-1", enc)
	assert.Equal(t, "a\u0081é", text)
}

func TestFileReaderMissing(t *testing.T) {
	t.Parallel()

	_, ok := FileReader{}.Read(filepath.Join(t.TempDir(), "nope.bas"))
	assert.False(t, ok)
}

type countingReader struct {
	calls map[string]int
}

func (c *countingReader) Read(path string) (string, bool) {
	c.calls[path]++
	return "text:" + path, true
}

func TestCachingReaderReadsOnce(t *testing.T) {
	t.Parallel()

	inner := &countingReader{calls: map[string]int{}}
	r := NewCachingReader(inner, 4)

	for range 3 {
		text, ok := r.Read("a.bas")
		require.True(t, ok)
		assert.Equal(t, "text:a.bas", text)
	}
	_, _ = r.Read("b.bas")

	assert.Equal(t, 1, inner.calls["a.bas"])
	assert.Equal(t, 1, inner.calls["b.bas"])
}

func TestCachingReaderFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "m.bas")
	require.NoError(t, os.WriteFile(path, []byte("Sub Main()\nEnd Sub\n"), 0o644))

	r := NewCachingReader(FileReader{}, 0)
	text, ok := r.Read(path)
	require.True(t, ok)
	assert.Contains(t, text, "Sub Main()")
}
