package partstream

import (
	"errors"
	"fmt"
	"io"
)

// Parse consumes the multipart body from r. Parts with a registered hook are
// streamed to it as they arrive; every other part is buffered into an Item
// retrievable through Item, Items, or ItemMap. Multipart framing is
// positional, so any framing or limit error aborts the whole parse; items
// collected before the failure stay available so the caller can RemoveAll
// them.
func (p *Parser) Parse(r io.Reader) error {
	stream, err := NewStream(r, p.boundary,
		WithMaxParts(p.maxParts),
		WithMaxHeaders(p.maxHeaders),
		WithMaxPartSize(p.maxPartSize),
		WithMaxRequestSize(p.maxRequestSize),
	)
	if err != nil {
		return err
	}

	for {
		part, err := stream.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("failed to read next part: %w", err)
		}

		name := part.FormName()
		if fn, ok := p.hookMap[name]; ok {
			if err := fn(part, part.Header); err != nil {
				return fmt.Errorf("failed to run hook for %q: %w", name, err)
			}
			continue
		}

		item := p.factory.CreateItem(name, part.ContentType(), part.IsFormField(), part.FileName())
		if p.defaultCharset != "" {
			item.SetDefaultCharset(p.defaultCharset)
		}

		if _, err := io.Copy(item, part); err != nil {
			if deleteErr := item.Delete(); deleteErr != nil {
				err = errors.Join(err, deleteErr)
			}

			return fmt.Errorf("failed to buffer part %q: %w", name, err)
		}

		p.itemMap[name] = append(p.itemMap[name], item)
	}
}
