package partstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/go-partstream/partstream/internal/myio"
	"github.com/go-partstream/partstream/internal/spill"
)

// DefaultCharset is used to decode content when neither the part's
// Content-Type nor the factory names one. Text subtypes received via HTTP
// default to ISO-8859-1.
const DefaultCharset = "ISO-8859-1"

// Item is the buffered result of consuming one part's body. Content of up
// to the factory's size threshold stays in memory; anything larger lives in
// a uniquely named temporary file whose lifetime is the item's. The owner
// must call Delete (or Parser.RemoveAll) when done, or the file stays on
// disk.
type Item struct {
	fieldName      string
	contentType    string
	fileName       string
	formField      bool
	defaultCharset string

	w          *spill.Writer
	cachedSize int64
}

// Write appends part body bytes, spilling to the temp file once the
// threshold is crossed.
func (it *Item) Write(p []byte) (int, error) {
	return it.w.Write(p)
}

// FieldName returns the form field name the part was sent under.
func (it *Item) FieldName() string { return it.fieldName }

// ContentType returns the part's content type, or "" if none was sent.
func (it *Item) ContentType() string { return it.contentType }

// IsFormField reports whether the item is a plain form field rather than an
// uploaded file.
func (it *Item) IsFormField() bool { return it.formField }

// InMemory reports whether the content is held in memory. Once the item has
// spilled to disk this is permanently false.
func (it *Item) InMemory() bool { return it.w.InMemory() }

// StoreLocation returns the backing temp file path, or "" while in memory.
func (it *Item) StoreLocation() string { return it.w.Path() }

// SetDefaultCharset overrides the charset assumed by String when the part's
// Content-Type has no charset parameter.
func (it *Item) SetDefaultCharset(charset string) {
	if charset != "" {
		it.defaultCharset = charset
	}
}

// Name returns the file name sent by the client. A name containing a NUL
// byte is rejected with an InvalidFileNameError carrying the raw value,
// since embedded NULs are a path-injection vector in several native
// filesystem APIs.
func (it *Item) Name() (string, error) {
	if strings.IndexByte(it.fileName, 0) >= 0 {
		return "", InvalidFileNameError{Name: it.fileName}
	}

	return it.fileName, nil
}

// Size returns the content length in bytes: the size cached by a successful
// Save, else the buffered length, else the live backing file length.
func (it *Item) Size() int64 {
	if it.cachedSize >= 0 {
		return it.cachedSize
	}
	if it.w.InMemory() {
		return it.w.Size()
	}
	if info, err := os.Stat(it.w.Path()); err == nil {
		return info.Size()
	}

	return it.w.Size()
}

// Charset returns the charset parameter of the item's content type, or ""
// if there is none.
func (it *Item) Charset() string {
	_, params, err := mime.ParseMediaType(it.contentType)
	if err != nil {
		return ""
	}

	return params["charset"]
}

// Bytes returns a copy of the full content. An item that was never written
// to yields an empty slice.
func (it *Item) Bytes() ([]byte, error) {
	if it.w.InMemory() {
		b := it.w.Bytes()
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}

	if err := it.w.Close(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(it.w.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to read backing file: %w", err)
	}

	return b, nil
}

// Open returns a reader over the content without copying it all into
// memory when disk-backed. The caller closes it.
func (it *Item) Open() (io.ReadSeekCloser, error) {
	if it.w.InMemory() {
		return myio.NopSeekCloser(bytes.NewReader(it.w.Bytes())), nil
	}

	if err := it.w.Close(); err != nil {
		return nil, err
	}
	f, err := os.Open(it.w.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to open backing file: %w", err)
	}

	return f, nil
}

// String returns the content decoded with the charset named by the part's
// Content-Type, falling back to the item's default charset. Any failure,
// including an unknown charset, yields "". Callers that need the failure
// use StringWithCharset; the asymmetry is long-standing caller-visible
// behavior and is kept as is.
func (it *Item) String() string {
	charset := it.Charset()
	if charset == "" {
		charset = it.defaultCharset
	}

	s, err := it.StringWithCharset(charset)
	if err != nil {
		return ""
	}

	return s
}

// StringWithCharset returns the content decoded with the given charset. An
// empty charset means the item's default. Unknown charsets are reported as
// UnsupportedCharsetError, never silently substituted.
func (it *Item) StringWithCharset(charset string) (string, error) {
	if charset == "" {
		charset = it.defaultCharset
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return "", UnsupportedCharsetError{Charset: charset}
	}

	raw, err := it.Bytes()
	if err != nil {
		return "", err
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode content as %s: %w", charset, err)
	}

	return string(decoded), nil
}

// Save finalizes the content to path. A disk-backed item is renamed into
// place, falling back to copy-and-remove across filesystems; an in-memory
// item is written out directly. For a disk-backed item this works exactly
// once: after a successful move the temp file is gone and a second call
// fails.
func (it *Item) Save(path string) error {
	if it.w.InMemory() {
		if err := os.WriteFile(path, it.w.Bytes(), 0o600); err != nil {
			return fmt.Errorf("failed to write item to %s: %w", path, err)
		}
		it.cachedSize = it.w.Size()
		return nil
	}

	if err := it.w.Close(); err != nil {
		return err
	}

	src := it.w.Path()
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat backing file: %w", err)
	}

	// An existing destination is replaced, not appended to.
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to replace %s: %w", path, err)
		}
	}

	if err := os.Rename(src, path); err != nil {
		// Rename cannot cross filesystems.
		if copyErr := copyFile(src, path); copyErr != nil {
			return fmt.Errorf("failed to move backing file to %s: %w", path, errors.Join(err, copyErr))
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("failed to remove backing file after copy: %w", err)
		}
	}
	it.cachedSize = info.Size()

	return nil
}

// Delete drops the in-memory content and removes the backing file if one
// exists. Removing a file that is already gone is reported as an error,
// matching filesystem semantics; callers should treat repeat calls as
// best-effort.
func (it *Item) Delete() error {
	return it.w.Discard()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	return nil
}
