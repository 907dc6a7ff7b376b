package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadContent(t *testing.T) {
	data := []byte("jpeg bytes go here")
	want := sha256.Sum256(data)

	c, err := ReadContent(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, hex.EncodeToString(want[:]), c.SHA256)
	assert.Equal(t, int64(len(data)), c.Size)
	assert.Equal(t, data, c.Bytes)
}

func TestReadContent_SameBytesSameDigest(t *testing.T) {
	data := []byte("identical")

	a, err := ReadContent(bytes.NewReader(data))
	require.NoError(t, err)
	b, err := ReadContent(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, a.SHA256, b.SHA256)
}

func TestReadContent_Empty(t *testing.T) {
	_, err := ReadContent(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestContent_Reader(t *testing.T) {
	c, err := ReadContent(strings.NewReader("two passes"))
	require.NoError(t, err)

	first, err := io.ReadAll(c.Reader())
	require.NoError(t, err)
	second, err := io.ReadAll(c.Reader())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContent_MatchesClaim(t *testing.T) {
	c, err := ReadContent(strings.NewReader("claimed"))
	require.NoError(t, err)

	assert.True(t, c.MatchesClaim(""))
	assert.True(t, c.MatchesClaim(c.SHA256))
	assert.False(t, c.MatchesClaim(strings.Repeat("0", 64)))
}
