package partstream

import (
	"io"
	"mime"
	"net/textproto"
)

// Parser reads a multipart/form-data body once, buffering each part into an
// Item unless a stream hook is registered for its field name.
type Parser struct {
	boundary string
	itemMap  map[string][]*Item
	hookMap  map[string]StreamHookFunc
	factory  *ItemFactory
	parserConfig
}

func NewParser(boundary string, options ...ParserOption) *Parser {
	c := parserConfig{
		maxParts:       defaultMaxParts,
		maxHeaders:     defaultMaxHeaders,
		maxPartSize:    NoLimit,
		maxRequestSize: NoLimit,
	}
	for _, opt := range options {
		opt(&c)
	}

	factory := c.factory
	if factory == nil {
		factory = NewItemFactory()
	}

	return &Parser{
		boundary:     boundary,
		itemMap:      make(map[string][]*Item),
		hookMap:      make(map[string]StreamHookFunc),
		factory:      factory,
		parserConfig: c,
	}
}

type parserConfig struct {
	maxParts       uint
	maxHeaders     uint
	maxPartSize    DataSize
	maxRequestSize DataSize
	defaultCharset string
	factory        *ItemFactory
}

type ParserOption func(*parserConfig)

type DataSize int64

const (
	_ DataSize = 1 << (iota * 10)
	KB
	MB
	GB
)

// NoLimit disables a size cap.
const NoLimit DataSize = -1

const (
	defaultMaxParts   = 10000
	defaultMaxHeaders = 10000
)

// WithMaxParts sets the maximum number of parts to be parsed.
// default: 10000
func WithMaxParts(maxParts uint) ParserOption {
	return func(c *parserConfig) {
		c.maxParts = maxParts
	}
}

// WithMaxHeaders sets the maximum number of headers to be parsed.
// default: 10000
func WithMaxHeaders(maxHeaders uint) ParserOption {
	return func(c *parserConfig) {
		c.maxHeaders = maxHeaders
	}
}

// WithMaxPartSize caps the body size of a single part. Exceeding it fails
// the parse with a SizeLimitExceededError naming the field.
// default: no limit
func WithMaxPartSize(maxPartSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxPartSize = maxPartSize
	}
}

// WithMaxRequestSize caps the total number of body bytes consumed across all
// parts. Exceeding it fails the parse with a SizeLimitExceededError before
// the oversized remainder is buffered.
// default: no limit
func WithMaxRequestSize(maxRequestSize DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxRequestSize = maxRequestSize
	}
}

// WithItemFactory sets the factory used to create Items for buffered parts.
func WithItemFactory(factory *ItemFactory) ParserOption {
	return func(c *parserConfig) {
		c.factory = factory
	}
}

// WithDefaultCharset sets the charset applied by Item.String when the part's
// Content-Type carries no charset parameter.
// default: ISO-8859-1
func WithDefaultCharset(charset string) ParserOption {
	return func(c *parserConfig) {
		c.defaultCharset = charset
	}
}

// Header is the parsed header block of one part.
type Header struct {
	dispositionParams map[string]string
	header            textproto.MIMEHeader
}

func newHeader(h textproto.MIMEHeader) Header {
	contentDisposition := h.Get("Content-Disposition")
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		params = make(map[string]string)
	}

	return Header{
		dispositionParams: params,
		header:            h,
	}
}

// Get returns the first value associated with the given key.
// If there are no values associated with the key, Get returns "".
func (h Header) Get(key string) string {
	return h.header.Get(key)
}

// Values returns all values associated with the given key, in the order they
// appeared in the part's header block.
func (h Header) Values(key string) []string {
	return h.header.Values(key)
}

// ContentType returns the value of the "Content-Type" header field.
// If there are no values associated with the key, ContentType returns "".
func (h Header) ContentType() string {
	return h.header.Get("Content-Type")
}

// Charset returns the value of the "charset" parameter of the "Content-Type"
// header field, or "" if there is none.
func (h Header) Charset() string {
	_, params, err := mime.ParseMediaType(h.header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	return params["charset"]
}

// Name returns the value of the "name" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, Name returns "".
func (h Header) Name() string {
	return h.dispositionParams["name"]
}

// FileName returns the value of the "filename" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, FileName returns "".
func (h Header) FileName() string {
	return h.dispositionParams["filename"]
}

// IsFormField reports whether the part is a plain form field. A part with no
// "filename" parameter is a form field; a part with a "filename" parameter,
// even an empty one, is a file field.
func (h Header) IsFormField() bool {
	_, ok := h.dispositionParams["filename"]
	return !ok
}

// StreamHookFunc consumes a part's body directly from the request stream.
type StreamHookFunc = func(r io.Reader, header Header) error
