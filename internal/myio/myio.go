// Package myio holds small io adapters with no home elsewhere.
package myio

import "io"

type nopSeekCloser struct {
	io.ReadSeeker
}

// NopSeekCloser turns a ReadSeeker into a ReadSeekCloser with a no-op Close,
// so in-memory content can share a signature with file-backed content.
func NopSeekCloser(r io.ReadSeeker) io.ReadSeekCloser {
	return nopSeekCloser{r}
}

func (nopSeekCloser) Close() error { return nil }
