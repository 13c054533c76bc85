package attachment

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveAndOpen(t *testing.T) {
	t.Parallel()

	store, err := NewStore(nil, t.TempDir(), 0)
	require.NoError(t, err)

	payload := encodePNG([]byte("stored-bytes"))
	stored, err := store.Save(context.Background(), payload)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.Ref, RefPrefix))
	assert.True(t, strings.HasSuffix(stored.Name, ".png"))
	assert.Equal(t, "image/png", stored.Mime)
	assert.Equal(t, int64(len("stored-bytes")), stored.Size)

	reader, mime, err := store.Open(context.Background(), stored.Name)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "image/png", mime)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "stored-bytes", string(data))

	// The ref form resolves the same bytes.
	reader2, _, err := store.Open(context.Background(), stored.Ref)
	require.NoError(t, err)
	reader2.Close()
}

func TestStoreDistinctRefsForIdenticalInput(t *testing.T) {
	t.Parallel()

	store, err := NewStore(nil, t.TempDir(), 0)
	require.NoError(t, err)

	payload := encodePNG([]byte("same"))
	first, err := store.Save(context.Background(), payload)
	require.NoError(t, err)
	second, err := store.Save(context.Background(), payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.Ref, second.Ref)
}

func TestStoreRejectsInvalidPayloadWithoutWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(nil, dir, 16)
	require.NoError(t, err)

	cases := []string{
		"not-a-data-uri",
		"data:image/bmp;base64,QUFBQQ==",
		encodePNG([]byte(strings.Repeat("x", 64))),
	}
	for _, payload := range cases {
		_, err := store.Save(context.Background(), payload)
		assert.Error(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file may be written for rejected payloads")
}

func TestStoreOpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(nil, dir, 0)
	require.NoError(t, err)

	// Plant a file outside the uploads dir that traversal would reach.
	outside := filepath.Join(dir, "..", "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	for _, name := range []string{"../secret.txt", "..", `..\secret.txt`, "a/b.png", ""} {
		_, _, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, "name %q", name)
	}
}
