package partstream

import (
	"errors"
	"io/fs"
)

// Item returns the first item stored under the key.
func (p *Parser) Item(key string) (*Item, bool) {
	items := p.itemMap[key]
	if len(items) == 0 {
		return nil, false
	}

	return items[0], true
}

// Items returns all items stored under the key, in the order the parts
// appeared in the body.
func (p *Parser) Items(key string) ([]*Item, bool) {
	items, ok := p.itemMap[key]
	if !ok {
		return nil, false
	}

	return items, true
}

// ItemMap returns all collected items.
func (p *Parser) ItemMap() map[string][]*Item {
	return p.itemMap
}

// RemoveAll deletes the backing storage of every collected item. Use it
// once the items are no longer needed, whether the parse succeeded or not.
// Items whose backing file is already gone, typically because Save moved it
// into place, are not an error here.
func (p *Parser) RemoveAll() error {
	var errs []error
	for _, items := range p.itemMap {
		for _, item := range items {
			if err := item.Delete(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
