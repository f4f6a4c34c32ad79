package partstream_test

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/go-partstream/partstream"
)

func TestItemFactory_Repository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	factory := partstream.NewItemFactory(
		partstream.WithSizeThreshold(1),
		partstream.WithRepository(dir),
	)

	item := factory.CreateItem("f", "", false, "big.bin")
	defer item.Delete()

	_, err := io.Copy(item, strings.NewReader("does not fit in memory"))
	require.NoError(t, err)

	path := item.StoreLocation()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "upload_")
}

func TestItemFactory_UniqueTempNames(t *testing.T) {
	t.Parallel()

	const workers = 64

	factory := partstream.NewItemFactory(
		partstream.WithSizeThreshold(0),
		partstream.WithRepository(t.TempDir()),
	)

	paths := make([]string, workers)
	eg := errgroup.Group{}
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			item := factory.CreateItem(fmt.Sprintf("f%d", i), "", false, "chunk.bin")
			if _, err := io.Copy(item, strings.NewReader("spill")); err != nil {
				return err
			}
			paths[i] = item.StoreLocation()
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	seen := make(map[string]struct{}, workers)
	for _, path := range paths {
		require.NotEmpty(t, path)
		_, dup := seen[path]
		assert.False(t, dup, "temp name collision: %s", path)
		seen[path] = struct{}{}
	}
}

func TestItemFactory_DefaultCharset(t *testing.T) {
	t.Parallel()

	factory := partstream.NewItemFactory(
		partstream.WithSizeThreshold(64),
		partstream.WithRepository(t.TempDir()),
		partstream.WithFactoryDefaultCharset("UTF-8"),
	)

	item := factory.CreateItem("f", "text/plain", true, "")
	_, err := item.Write([]byte("héllo"))
	require.NoError(t, err)

	assert.Equal(t, "héllo", item.String())
}
