package partstream

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/go-partstream/partstream/internal/spill"
)

// DefaultSizeThreshold is the largest content kept in memory unless the
// factory is configured otherwise.
const DefaultSizeThreshold = 10 * KB

// uid distinguishes this process's temp files from a previous run's
// leftovers in a shared repository. Uniqueness is the guarantee, not
// unpredictability; this is not a security token.
var uid = strings.ReplaceAll(uuid.NewString(), "-", "_")

var counter atomic.Int64

func nextID() string {
	return fmt.Sprintf("%08d", counter.Add(1)-1)
}

// ItemFactory builds Items with a shared size threshold and temp-file
// repository. A single factory may serve concurrent parses; the temp name
// counter is atomic.
type ItemFactory struct {
	threshold      DataSize
	repository     string
	defaultCharset string
}

type ItemFactoryOption func(*ItemFactory)

func NewItemFactory(options ...ItemFactoryOption) *ItemFactory {
	f := &ItemFactory{
		threshold:      DefaultSizeThreshold,
		defaultCharset: DefaultCharset,
	}
	for _, opt := range options {
		opt(f)
	}

	return f
}

// WithSizeThreshold sets the largest content, in bytes, an item keeps in
// memory. One byte more spills the item to disk.
// default: 10KB
func WithSizeThreshold(threshold DataSize) ItemFactoryOption {
	return func(f *ItemFactory) {
		f.threshold = threshold
	}
}

// WithRepository sets the directory spilled items are stored in.
// default: the platform temp directory
func WithRepository(dir string) ItemFactoryOption {
	return func(f *ItemFactory) {
		f.repository = dir
	}
}

// WithFactoryDefaultCharset sets the charset items assume when the part's
// Content-Type names none.
// default: ISO-8859-1
func WithFactoryDefaultCharset(charset string) ItemFactoryOption {
	return func(f *ItemFactory) {
		f.defaultCharset = charset
	}
}

// CreateItem returns a fresh Item for one part's body.
func (f *ItemFactory) CreateItem(fieldName, contentType string, formField bool, fileName string) *Item {
	return &Item{
		fieldName:      fieldName,
		contentType:    contentType,
		fileName:       fileName,
		formField:      formField,
		defaultCharset: f.defaultCharset,
		w:              spill.NewWriter(int64(f.threshold), f),
		cachedSize:     -1,
	}
}

// CreateTemp creates a uniquely named file in the repository. O_EXCL turns
// a name collision into an error instead of silent truncation.
func (f *ItemFactory) CreateTemp() (*os.File, error) {
	dir := f.repository
	if dir == "" {
		dir = os.TempDir()
	}

	name := filepath.Join(dir, fmt.Sprintf("upload_%s_%s.tmp", uid, nextID()))
	file, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}

	return file, nil
}
