package partstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTooManyParts is returned when the parts are more than MaxParts.
	ErrTooManyParts = errors.New("too many parts")
	// ErrTooManyHeaders is returned when the headers are more than MaxHeaders.
	ErrTooManyHeaders = errors.New("too many headers")
)

// MalformedStreamError is returned when the body is not valid multipart
// framing: the boundary is never found, or the input ends before the final
// boundary. The stream is unusable afterwards; the caller must abort.
type MalformedStreamError struct {
	Reason string
}

func (e MalformedStreamError) Error() string {
	return fmt.Sprintf("malformed multipart stream: %s", e.Reason)
}

// SizeLimitExceededError is returned when a part or the whole request grows
// past a configured cap. FieldName is empty when the whole-request cap was
// hit.
type SizeLimitExceededError struct {
	FieldName string
	Limit     DataSize
	Seen      DataSize
}

func (e SizeLimitExceededError) Error() string {
	if e.FieldName == "" {
		return fmt.Sprintf("request size limit exceeded: read %d bytes, limit %d bytes", e.Seen, e.Limit)
	}

	return fmt.Sprintf("part %q size limit exceeded: read %d bytes, limit %d bytes", e.FieldName, e.Seen, e.Limit)
}

// InvalidFileNameError is returned when a part's file name contains a NUL
// character, a known path-injection vector in native filesystem APIs.
// Name holds the raw value; the message renders NUL as the two-character
// escape `\0`.
type InvalidFileNameError struct {
	Name string
}

func (e InvalidFileNameError) Error() string {
	return fmt.Sprintf("invalid file name: %s", e.EscapedName())
}

// EscapedName returns the offending file name with every NUL rendered as
// `\0` and all other characters preserved verbatim.
func (e InvalidFileNameError) EscapedName() string {
	return strings.ReplaceAll(e.Name, "\x00", `\0`)
}

// UnsupportedCharsetError is returned when a string decode is requested with
// a charset name no decoder is known for.
type UnsupportedCharsetError struct {
	Charset string
}

func (e UnsupportedCharsetError) Error() string {
	return fmt.Sprintf("unsupported charset: %s", e.Charset)
}

// DuplicateHookNameError is returned by Parser.Register when a hook is
// already registered for the field name.
type DuplicateHookNameError struct {
	Name string
}

func (e DuplicateHookNameError) Error() string {
	return fmt.Sprintf("duplicate hook name: %s", e.Name)
}
