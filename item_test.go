package partstream_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-partstream/partstream"
)

func newTestFactory(t *testing.T, threshold partstream.DataSize) *partstream.ItemFactory {
	t.Helper()

	return partstream.NewItemFactory(
		partstream.WithSizeThreshold(threshold),
		partstream.WithRepository(t.TempDir()),
	)
}

func TestItem_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	const threshold = 8
	factory := newTestFactory(t, threshold)

	cases := []struct {
		name         string
		size         int
		wantInMemory bool
	}{
		{name: "below threshold", size: threshold - 1, wantInMemory: true},
		{name: "exactly threshold", size: threshold, wantInMemory: true},
		{name: "one byte over", size: threshold + 1, wantInMemory: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			item := factory.CreateItem("f", "application/octet-stream", false, "data.bin")
			content := strings.Repeat("x", tc.size)

			_, err := io.Copy(item, strings.NewReader(content))
			require.NoError(t, err)
			defer item.Delete()

			assert.Equal(t, tc.wantInMemory, item.InMemory())
			assert.Equal(t, int64(tc.size), item.Size())

			got, err := item.Bytes()
			require.NoError(t, err)
			assert.Equal(t, []byte(content), got)

			if tc.wantInMemory {
				assert.Empty(t, item.StoreLocation())
			} else {
				assert.NotEmpty(t, item.StoreLocation())
			}
		})
	}
}

func TestItem_Empty(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 8)
	item := factory.CreateItem("f", "", true, "")

	assert.True(t, item.InMemory())
	assert.Zero(t, item.Size())

	got, err := item.Bytes()
	require.NoError(t, err)
	assert.Len(t, got, 0)
}

func TestItem_BytesReturnsCopy(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 64)
	item := factory.CreateItem("f", "", true, "")

	_, err := item.Write([]byte("immutable"))
	require.NoError(t, err)

	first, err := item.Bytes()
	require.NoError(t, err)
	first[0] = 'X'

	second, err := item.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), second)
}

func TestItem_OpenStreamsDiskContent(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 4)
	item := factory.CreateItem("f", "", false, "big.bin")
	defer item.Delete()

	content := strings.Repeat("spill me to disk ", 64)
	_, err := io.Copy(item, strings.NewReader(content))
	require.NoError(t, err)
	require.False(t, item.InMemory())

	rc, err := item.Open()
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestItem_SaveRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		threshold partstream.DataSize
	}{
		{name: "memory backed", threshold: 1 * partstream.KB},
		{name: "disk backed", threshold: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			factory := newTestFactory(t, tc.threshold)
			item := factory.CreateItem("f", "", false, "out.bin")

			content := "round trip content"
			_, err := io.Copy(item, strings.NewReader(content))
			require.NoError(t, err)

			dst := filepath.Join(t.TempDir(), "final.bin")
			require.NoError(t, item.Save(dst))

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, content, string(got))
			assert.Equal(t, int64(len(content)), item.Size())
		})
	}
}

func TestItem_SaveTwiceDiskBacked(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 2)
	item := factory.CreateItem("f", "", false, "out.bin")

	_, err := io.Copy(item, strings.NewReader("spilled content"))
	require.NoError(t, err)
	require.False(t, item.InMemory())

	dir := t.TempDir()
	require.NoError(t, item.Save(filepath.Join(dir, "first.bin")))

	// The temp file was moved away; a second finalize has nothing to move.
	err = item.Save(filepath.Join(dir, "second.bin"))
	require.Error(t, err)
}

func TestItem_SaveReplacesExisting(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 2)
	item := factory.CreateItem("f", "", false, "out.bin")

	_, err := io.Copy(item, strings.NewReader("new content"))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "final.bin")
	require.NoError(t, os.WriteFile(dst, []byte("old content"), 0o600))

	require.NoError(t, item.Save(dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))
}

func TestItem_Delete(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 2)
	item := factory.CreateItem("f", "", false, "out.bin")

	_, err := io.Copy(item, strings.NewReader("spilled content"))
	require.NoError(t, err)

	path := item.StoreLocation()
	require.NotEmpty(t, path)

	require.NoError(t, item.Delete())

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// The file is already gone; filesystem semantics report that.
	assert.Error(t, item.Delete())
}

func TestItem_DeleteInMemory(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 64)
	item := factory.CreateItem("f", "", true, "")

	_, err := item.Write([]byte("value"))
	require.NoError(t, err)

	require.NoError(t, item.Delete())
	require.NoError(t, item.Delete())
}

func TestItem_Name(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 64)

	t.Run("valid name", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "", false, "report.pdf")
		name, err := item.Name()
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", name)
	})

	t.Run("NUL byte is rejected", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "", false, "evil\x00.pdf")
		_, err := item.Name()

		var nameErr partstream.InvalidFileNameError
		require.ErrorAs(t, err, &nameErr)
		assert.Equal(t, "evil\x00.pdf", nameErr.Name)
		assert.Equal(t, `evil\0.pdf`, nameErr.EscapedName())
		assert.Contains(t, err.Error(), `evil\0.pdf`)
	})
}

func TestItem_Strings(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 64)

	// "héllo" encoded as ISO-8859-1.
	latin1 := []byte{'h', 0xe9, 'l', 'l', 'o'}

	t.Run("explicit charset", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "text/plain", true, "")
		_, err := item.Write(latin1)
		require.NoError(t, err)

		got, err := item.StringWithCharset("ISO-8859-1")
		require.NoError(t, err)
		assert.Equal(t, "héllo", got)
	})

	t.Run("charset from content type", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "text/plain; charset=utf-8", true, "")
		_, err := item.Write([]byte("héllo"))
		require.NoError(t, err)

		assert.Equal(t, "héllo", item.String())
	})

	t.Run("default charset", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "text/plain", true, "")
		_, err := item.Write(latin1)
		require.NoError(t, err)

		assert.Equal(t, "héllo", item.String())
	})

	t.Run("unknown charset is an error", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "text/plain", true, "")
		_, err := item.Write(latin1)
		require.NoError(t, err)

		_, err = item.StringWithCharset("no-such-charset")

		var charsetErr partstream.UnsupportedCharsetError
		require.ErrorAs(t, err, &charsetErr)
		assert.Equal(t, "no-such-charset", charsetErr.Charset)
	})

	t.Run("lenient form swallows the error", func(t *testing.T) {
		t.Parallel()

		item := factory.CreateItem("f", "text/plain; charset=no-such-charset", true, "")
		_, err := item.Write(latin1)
		require.NoError(t, err)

		assert.Equal(t, "", item.String())
	})
}

func TestItem_Metadata(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t, 64)
	item := factory.CreateItem("avatar", "image/png", false, "me.png")

	assert.Equal(t, "avatar", item.FieldName())
	assert.Equal(t, "image/png", item.ContentType())
	assert.False(t, item.IsFormField())
	assert.True(t, item.InMemory())
}
