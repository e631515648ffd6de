package objectclient

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "2024/03/abc_test.pdf", strings.NewReader("payload"), "application/pdf"))

	rc, err := store.Get(ctx, "2024/03/abc_test.pdf")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	local, cleanup, err := store.LocalPath(ctx, "2024/03/abc_test.pdf")
	require.NoError(t, err)
	cleanup()
	assert.NotEmpty(t, local)

	require.NoError(t, store.Delete(ctx, "2024/03/abc_test.pdf"))
	_, err = store.Get(ctx, "2024/03/abc_test.pdf")
	assert.Error(t, err)
}

func TestDiskStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), "never/existed.pdf"))
}

func TestDiskStoreLocalPathMissingBlob(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	_, cleanup, err := store.LocalPath(context.Background(), "missing.pdf")
	cleanup()
	assert.Error(t, err)
}

func TestDiskStoreRequiresRoot(t *testing.T) {
	_, err := NewDiskStore("")
	assert.Error(t, err)
}

func TestDiskStorePutOverwrites(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.txt", bytes.NewReader([]byte("one")), "text/plain"))
	require.NoError(t, store.Put(ctx, "a.txt", bytes.NewReader([]byte("two")), "text/plain"))

	rc, err := store.Get(ctx, "a.txt")
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "two", string(got))
}
