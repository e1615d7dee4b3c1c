package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1009rishit/Case-data/internal/storage/memory"
)

func TestPutObjectAndGet(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	uri, err := store.PutObject(context.Background(), "a/b.pdf", "application/pdf", strings.NewReader("body"))
	require.NoError(t, err)
	assert.Equal(t, "memory://a/b.pdf", uri)

	body, ok := store.Get("a/b.pdf")
	require.True(t, ok)
	assert.Equal(t, []byte("body"), body)

	_, ok = store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a/b.pdf"}, store.Paths())
}
