// Package echoform adapts echo requests to the partstream parser.
package echoform

import (
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/go-partstream/partstream"
)

type Parser struct {
	*partstream.Parser
	reader io.Reader
}

// NewParser validates that the request carries multipart/form-data and
// builds a parser for its boundary. A charset parameter on the content type
// becomes the default charset of buffered items.
func NewParser(c echo.Context, options ...partstream.ParserOption) (*Parser, error) {
	contentType := c.Request().Header.Get("Content-Type")
	d, params, err := mime.ParseMediaType(contentType)
	if err != nil || d != "multipart/form-data" {
		return nil, http.ErrNotMultipart
	}

	boundary, ok := params["boundary"]
	if !ok {
		return nil, http.ErrMissingBoundary
	}

	if charset, ok := params["charset"]; ok {
		options = append(options, partstream.WithDefaultCharset(charset))
	}

	return &Parser{
		Parser: partstream.NewParser(boundary, options...),
		reader: c.Request().Body,
	}, nil
}

func (p *Parser) Parse() error {
	return p.Parser.Parse(p.reader)
}
