package partstream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const minReadBufferSize = 4096

// Stream is a lazy, single-pass iterator over the parts of one
// multipart/form-data body. It is not safe for concurrent use; one stream
// belongs to one request.
type Stream struct {
	br               *bufio.Reader
	dashBoundary     []byte // "--boundary"
	dashBoundaryDash []byte // "--boundary--"
	nlDashBoundary   []byte // "\r\n--boundary", "\n--boundary" once LF framing is detected
	nl               []byte

	current      *Part
	partsRead    uint
	headerBudget uint
	sawFinal     bool

	maxParts    uint
	maxPartSize DataSize
}

// NewStream wraps r for iteration with NextPart. The boundary is the value
// of the content-type's boundary parameter, without the leading dashes.
func NewStream(r io.Reader, boundary string, options ...ParserOption) (*Stream, error) {
	if boundary == "" {
		return nil, MalformedStreamError{Reason: "empty boundary"}
	}

	c := parserConfig{
		maxParts:       defaultMaxParts,
		maxHeaders:     defaultMaxHeaders,
		maxPartSize:    NoLimit,
		maxRequestSize: NoLimit,
	}
	for _, opt := range options {
		opt(&c)
	}

	if c.maxRequestSize != NoLimit {
		r = &requestLimitReader{r: r, limit: c.maxRequestSize}
	}

	b := []byte("\r\n--" + boundary + "--")
	size := minReadBufferSize
	if n := 2 * len(b); n > size {
		size = n
	}

	return &Stream{
		br:               bufio.NewReaderSize(r, size),
		dashBoundary:     b[2 : len(b)-2],
		dashBoundaryDash: b[2:],
		nlDashBoundary:   b[:len(b)-2],
		nl:               b[:2],
		headerBudget:     c.maxHeaders,
		maxParts:         c.maxParts,
		maxPartSize:      c.maxPartSize,
	}, nil
}

// NextPart advances to the next part. The previous part's body is drained
// and becomes unreadable. NextPart returns io.EOF after the final boundary.
func (s *Stream) NextPart() (*Part, error) {
	if s.current != nil {
		if err := s.current.discard(); err != nil {
			return nil, err
		}
		s.current = nil
	}
	if s.sawFinal {
		return nil, io.EOF
	}

	// Skip the preamble (and the delimiter's trailing CRLF between parts)
	// until a boundary line turns up.
	for {
		line, err := readLine(s.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, MalformedStreamError{Reason: "unexpected end of input before final boundary"}
			}

			return nil, fmt.Errorf("failed to read boundary line: %w", err)
		}

		if s.isDelimiter(line) {
			break
		}
		if s.isFinalDelimiter(line) {
			// Anything after the final boundary is epilogue; leave it
			// unread and report end of parts.
			s.sawFinal = true
			return nil, io.EOF
		}
	}

	if s.partsRead >= s.maxParts {
		return nil, ErrTooManyParts
	}
	s.partsRead++

	header, err := readHeader(s.br, &s.headerBudget)
	if err != nil {
		return nil, err
	}

	p := &Part{
		Header: newHeader(header),
		s:      s,
	}
	s.current = p

	return p, nil
}

func (s *Stream) isDelimiter(line []byte) bool {
	body := bytes.TrimRight(trimEOL(line), " \t")
	if !bytes.Equal(body, s.dashBoundary) {
		return false
	}

	// Some producers frame with bare LF. Detect it on the first boundary
	// line and scan part bodies accordingly.
	if s.partsRead == 0 && bytes.HasSuffix(line, []byte("\n")) && !bytes.HasSuffix(line, []byte("\r\n")) {
		s.nl = s.nl[1:]
		s.nlDashBoundary = s.nlDashBoundary[1:]
	}

	return true
}

func (s *Stream) isFinalDelimiter(line []byte) bool {
	body := bytes.TrimRight(trimEOL(line), " \t")
	return bytes.Equal(body, s.dashBoundaryDash)
}

// Part is one section of a multipart body. Its body is readable exactly
// once, and only until the owning Stream advances.
type Part struct {
	Header Header

	s       *Stream
	n       int   // bytes known to be body content, readable now
	total   int64 // body bytes handed out so far
	err     error // terminal state: io.EOF at the part's end, or a failure
	readErr error // error from refilling the read buffer
	closed  bool
}

// FormName returns the value of the Content-Disposition name parameter.
func (p *Part) FormName() string { return p.Header.Name() }

// FileName returns the value of the Content-Disposition filename parameter.
func (p *Part) FileName() string { return p.Header.FileName() }

// ContentType returns the part's Content-Type header value.
func (p *Part) ContentType() string { return p.Header.ContentType() }

// IsFormField reports whether the part carries no filename parameter.
func (p *Part) IsFormField() bool { return p.Header.IsFormField() }

func (p *Part) Read(d []byte) (int, error) {
	if p.closed {
		return 0, io.EOF
	}

	br := p.s.br
	for p.n == 0 && p.err == nil {
		peek, _ := br.Peek(br.Buffered())
		p.n, p.err = p.s.scanUntilBoundary(peek, p.total, p.readErr)
		if p.n == 0 && p.err == nil {
			// Nothing safely consumable yet; force more into the buffer.
			_, p.readErr = br.Peek(len(peek) + 1)
			if errors.Is(p.readErr, io.EOF) {
				p.readErr = MalformedStreamError{Reason: "unexpected end of input before closing boundary"}
			}
		}
	}

	if p.n == 0 {
		return 0, p.err
	}

	n := min(len(d), p.n)
	n, _ = br.Read(d[:n])
	p.total += int64(n)
	p.n -= n

	if limit := p.s.maxPartSize; limit != NoLimit && DataSize(p.total) > limit {
		p.err = SizeLimitExceededError{
			FieldName: p.FormName(),
			Limit:     limit,
			Seen:      DataSize(p.total),
		}
		return n, p.err
	}

	if p.n == 0 {
		return n, p.err
	}

	return n, nil
}

// discard drains the remaining body so the stream sits at the next boundary.
func (p *Part) discard() error {
	if p.closed {
		return nil
	}

	_, err := io.Copy(io.Discard, p)
	p.closed = true
	if err != nil {
		return fmt.Errorf("failed to drain part %q: %w", p.FormName(), err)
	}

	return nil
}

// scanUntilBoundary reports how many bytes at the front of buf are body
// content, and whether the delimiter follows them. It returns io.EOF as the
// error once the delimiter is located; a nil error means more data is
// needed. Bytes that could be the head of a delimiter split across a buffer
// refill are never counted as content.
func (s *Stream) scanUntilBoundary(buf []byte, total int64, readErr error) (int, error) {
	if total == 0 {
		// A part may be completely empty, with the delimiter directly
		// after the header block and no CRLF of its own.
		if bytes.HasPrefix(buf, s.dashBoundary) {
			switch matchAfterPrefix(buf, s.dashBoundary, readErr) {
			case -1:
				return len(s.dashBoundary), nil
			case 0:
				return 0, nil
			case +1:
				return 0, io.EOF
			}
		}
		if bytes.HasPrefix(s.dashBoundary, buf) {
			return 0, readErr
		}
	}

	if i := bytes.Index(buf, s.nlDashBoundary); i >= 0 {
		switch matchAfterPrefix(buf[i:], s.nlDashBoundary, readErr) {
		case -1:
			return i + len(s.nlDashBoundary), nil
		case 0:
			return i, nil
		case +1:
			return i, io.EOF
		}
	}
	if bytes.HasPrefix(s.nlDashBoundary, buf) {
		return 0, readErr
	}

	// No delimiter in the window. If no more data is coming, everything
	// left is content and readErr tells the caller why we stopped.
	if readErr != nil {
		return len(buf), readErr
	}

	// Hold back the longest tail that could still grow into a delimiter.
	keep := 0
	for k := min(len(s.nlDashBoundary)-1, len(buf)); k > 0; k-- {
		if bytes.HasPrefix(s.nlDashBoundary, buf[len(buf)-k:]) {
			keep = k
			break
		}
	}

	return len(buf) - keep, nil
}

// matchAfterPrefix checks whether buf, which starts with prefix, really
// carries a delimiter there: +1 yes, -1 no, 0 undecidable without more data.
// A delimiter is followed by CRLF, transport padding, or the final "--".
func matchAfterPrefix(buf, prefix []byte, readErr error) int {
	if len(buf) == len(prefix) {
		if readErr != nil {
			return +1
		}
		return 0
	}

	switch buf[len(prefix)] {
	case ' ', '\t', '\r', '\n', '-':
		return +1
	}

	return -1
}

// requestLimitReader fails the whole parse once more bytes have been pulled
// from the source than the request cap allows, before they are buffered
// anywhere.
type requestLimitReader struct {
	r     io.Reader
	limit DataSize
	read  int64
}

func (l *requestLimitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if DataSize(l.read) > l.limit {
		return n, SizeLimitExceededError{Limit: l.limit, Seen: DataSize(l.read)}
	}

	return n, err
}
