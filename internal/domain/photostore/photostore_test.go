package photostore

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBase64CreatesRootAndFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "photos")
	s := New(root)

	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	require.NoError(t, s.WriteBase64("P_1", ".jpg", payload))

	raw, err := os.ReadFile(filepath.Join(root, "P_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
}

func TestWriteBase64DefaultsExtension(t *testing.T) {
	s := New(t.TempDir())

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	require.NoError(t, s.WriteBase64("P_2", "", payload))

	ext, found := s.Extension("P_2")
	require.True(t, found)
	assert.Equal(t, DefaultExtension, ext)
}

func TestWriteBase64RemovesStaleExtension(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	payload := base64.StdEncoding.EncodeToString([]byte("first"))
	require.NoError(t, s.WriteBase64("P_3", ".png", payload))

	payload2 := base64.StdEncoding.EncodeToString([]byte("second"))
	require.NoError(t, s.WriteBase64("P_3", ".jpg", payload2))

	_, err := os.Stat(filepath.Join(root, "P_3.png"))
	assert.True(t, os.IsNotExist(err))

	raw, err := os.ReadFile(filepath.Join(root, "P_3.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(raw))
}

func TestWriteBase64KeepsExistingExtensionWhenOmitted(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	payload := base64.StdEncoding.EncodeToString([]byte("v1"))
	require.NoError(t, s.WriteBase64("P_4", ".png", payload))

	payload2 := base64.StdEncoding.EncodeToString([]byte("v2"))
	require.NoError(t, s.WriteBase64("P_4", "", payload2))

	ext, found := s.Extension("P_4")
	require.True(t, found)
	assert.Equal(t, ".png", ext)
}

func TestWriteBase64InvalidBase64(t *testing.T) {
	s := New(t.TempDir())
	err := s.WriteBase64("P_5", ".jpg", "not-base64!!!")
	assert.Error(t, err)
}

func TestReadBase64RoundTrip(t *testing.T) {
	s := New(t.TempDir())

	payload := base64.StdEncoding.EncodeToString([]byte("round-trip"))
	require.NoError(t, s.WriteBase64("P_6", ".jpg", payload))

	content, ext, found, err := s.ReadBase64("P_6")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ".jpg", ext)

	decoded, err := base64.StdEncoding.DecodeString(content)
	require.NoError(t, err)
	assert.Equal(t, "round-trip", string(decoded))
}

func TestReadBase64NotFound(t *testing.T) {
	s := New(t.TempDir())

	_, _, found, err := s.ReadBase64("missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New(t.TempDir())

	assert.NoError(t, s.Delete("never-existed"))

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	require.NoError(t, s.WriteBase64("P_7", ".jpg", payload))
	require.NoError(t, s.Delete("P_7"))
	require.NoError(t, s.Delete("P_7"))

	assert.False(t, s.Has("P_7"))
}
