package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestPath_Sharding(t *testing.T) {
	s := &Store{root: "/data/uploads"}
	sha := "ab12cd" + "0000000000000000000000000000000000000000000000000000000000"
	require.Len(t, sha, 64)

	got := s.Path(sha)
	want := filepath.Join("/data/uploads", "ab", "12", sha+".jpg")
	assert.Equal(t, want, got)
}

func TestPut_WriteOnce(t *testing.T) {
	s := newTestStore(t)

	data := []byte("photo bytes")
	sha := hashBytes(data)

	existed, err := s.Put(sha, data)
	require.NoError(t, err)
	assert.False(t, existed)

	info, err := os.Stat(s.Path(sha))
	require.NoError(t, err)
	firstMod := info.ModTime()

	existed, err = s.Put(sha, data)
	require.NoError(t, err)
	assert.True(t, existed)

	info, err = os.Stat(s.Path(sha))
	require.NoError(t, err)
	assert.Equal(t, firstMod, info.ModTime(), "second put must not rewrite the file")
}

func TestPut_Mode(t *testing.T) {
	s := newTestStore(t)

	data := []byte("restricted")
	sha := hashBytes(data)

	_, err := s.Put(sha, data)
	require.NoError(t, err)

	info, err := os.Stat(s.Path(sha))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestPut_InvalidDigest(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put("not-a-digest", []byte("x"))
	assert.Error(t, err)

	_, err = s.Put("ABCDEF", []byte("x")) // uppercase and short
	assert.Error(t, err)
}

func TestDelete_MissingIsSuccess(t *testing.T) {
	s := newTestStore(t)

	sha := hashBytes([]byte("never uploaded"))
	require.NoError(t, s.Delete(sha))
}

func TestDelete_RemovesBlob(t *testing.T) {
	s := newTestStore(t)

	data := []byte("to be deleted")
	sha := hashBytes(data)
	_, err := s.Put(sha, data)
	require.NoError(t, err)
	require.True(t, s.Exists(sha))

	require.NoError(t, s.Delete(sha))
	assert.False(t, s.Exists(sha))
}
