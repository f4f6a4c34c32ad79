package partstream

// Register attaches a hook that consumes the named part's body straight from
// the request stream, bypassing Item buffering. The reader handed to the
// hook is only valid until the hook returns.
func (p *Parser) Register(name string, fn StreamHookFunc) error {
	if _, ok := p.hookMap[name]; ok {
		return DuplicateHookNameError{Name: name}
	}

	p.hookMap[name] = fn

	return nil
}
