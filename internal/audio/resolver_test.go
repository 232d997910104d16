package audio

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wavBytes() []byte {
	return append([]byte("RIFF"), []byte("\x24\x00\x00\x00WAVEfmt payload")...)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	// zlib wraps deflate in a 2-byte header and 4-byte checksum; strip to
	// get a raw deflate stream.
	raw := buf.Bytes()
	return raw[2 : len(raw)-4]
}

func TestResolveBlobAlreadyWAV(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()

	res := r.ResolveBlob(wav, 0, 0, 1)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobGzip(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()

	res := r.ResolveBlob(gzipBytes(t, wav), 0, 0, 2)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobDeflate(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()

	res := r.ResolveBlob(deflateBytes(t, wav), 0, 0, 3)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobGzipBehindHeader(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()
	blob := append([]byte{0xde, 0xad, 0xbe, 0xef}, gzipBytes(t, wav)...)

	res := r.ResolveBlob(blob, 0, 0, 4)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobUnknownFormatFallsBackToRaw(t *testing.T) {
	r := NewResolver(testLogger())
	// 0x07 has an invalid deflate block type at every bit offset used, so no
	// decompression strategy can claim it.
	blob := bytes.Repeat([]byte{0x07}, 64)

	res := r.ResolveBlob(blob, 0, 0, 5)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeRaw, res.ContentType)
	assert.Equal(t, blob, res.Data)
}

func TestResolveBlobSliceApplied(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()
	blob := append([]byte{0x01, 0x02, 0x03}, wav...)

	res := r.ResolveBlob(blob, 3, len(wav), 6)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobSliceOverflowUsesFullBlob(t *testing.T) {
	r := NewResolver(testLogger())
	wav := wavBytes()

	res := r.ResolveBlob(wav, 10, len(wav)*4, 7)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeWAV, res.ContentType)
	assert.Equal(t, wav, res.Data)
}

func TestResolveBlobEmptyInput(t *testing.T) {
	r := NewResolver(testLogger())

	res := r.ResolveBlob(nil, 0, 0, 8)
	require.NotNil(t, res)
	assert.Equal(t, ContentTypeRaw, res.ContentType)
	assert.Empty(t, res.Data)
}

func TestResolveFile(t *testing.T) {
	r := NewResolver(testLogger())
	root := t.TempDir()
	rel := filepath.Join("2025", "01")
	require.NoError(t, os.MkdirAll(filepath.Join(root, rel), 0o755))

	t.Run("extension variant preferred", func(t *testing.T) {
		path := filepath.Join(root, rel, "dict1.opus")
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

		got, ok := r.ResolveFile(root, rel, "dict1")
		require.True(t, ok)
		assert.Equal(t, path, got)
	})

	t.Run("bare basename fallback", func(t *testing.T) {
		path := filepath.Join(root, rel, "dict2")
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

		got, ok := r.ResolveFile(root, rel, "dict2")
		require.True(t, ok)
		assert.Equal(t, path, got)
	})

	t.Run("absent under both names", func(t *testing.T) {
		_, ok := r.ResolveFile(root, rel, "missing")
		assert.False(t, ok)
	})

	t.Run("empty arguments", func(t *testing.T) {
		_, ok := r.ResolveFile("", rel, "dict1")
		assert.False(t, ok)
	})
}
