package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutGetDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx))

	require.NoError(t, store.Put(ctx, "cvs/a.pdf", strings.NewReader("hello"), 5, "application/pdf"))

	r, err := store.Get(ctx, "cvs/a.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, "cvs/a.pdf"))
	_, err = store.Get(ctx, "cvs/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, store.Delete(ctx, "cvs/a.pdf"), "deleting a missing object succeeds")
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../outside.pdf", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}
