package partstream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/textproto"
)

// readHeader consumes "Name: value" lines up to and including the blank line
// that terminates a part's header block. Continuation lines (leading space or
// tab) are unfolded into the previous value. Lines without a colon are
// skipped; multipart producers vary too much in strictness for that to be
// fatal. budget is the number of header values the stream may still accept.
func readHeader(br *bufio.Reader, budget *uint) (textproto.MIMEHeader, error) {
	header := make(textproto.MIMEHeader)

	var lastKey string
	for {
		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, MalformedStreamError{Reason: "unexpected end of input in part headers"}
			}

			return nil, err
		}

		line = trimEOL(line)
		if len(line) == 0 {
			return header, nil
		}

		if line[0] == ' ' || line[0] == '\t' {
			// Folded continuation of the previous header value.
			if lastKey == "" {
				continue
			}
			values := header[lastKey]
			values[len(values)-1] += " " + string(bytes.TrimLeft(line, " \t"))
			continue
		}

		i := bytes.IndexByte(line, ':')
		if i < 0 {
			lastKey = ""
			continue
		}

		if *budget == 0 {
			return nil, ErrTooManyHeaders
		}
		*budget--

		key := textproto.CanonicalMIMEHeaderKey(string(bytes.TrimSpace(line[:i])))
		value := string(bytes.TrimSpace(line[i+1:]))
		header[key] = append(header[key], value)
		lastKey = key
	}
}

// readLine reads one line including its terminator, accumulating across
// buffer refills for lines longer than the read buffer.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadSlice('\n')
	if err == nil || len(line) > 0 && errors.Is(err, io.EOF) {
		return line, nil
	}
	if !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}

	full := append([]byte(nil), line...)
	for errors.Is(err, bufio.ErrBufferFull) {
		line, err = br.ReadSlice('\n')
		full = append(full, line...)
	}
	if err != nil && !(len(full) > 0 && errors.Is(err, io.EOF)) {
		return nil, err
	}

	return full, nil
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
