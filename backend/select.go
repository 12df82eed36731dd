package backend

// Select returns the first supported candidate after running its Setup.
//
// Candidates are tried in the order given. Unsupported ones are skipped
// without any other method being called on them. If the first supported
// candidate fails Setup, Select reports that failure and does not move on
// to later candidates.
func Select(candidates ...Backend) (Backend, error) {
	for _, b := range candidates {
		if b == nil || !b.IsSupported() {
			continue
		}
		if err := b.Setup(); err != nil {
			return nil, asUnavailable(b.Name(), err)
		}
		return b, nil
	}
	return nil, &UnavailableError{Err: ErrNoSupportedBackend}
}

// Open prepares a specific backend, bypassing the priority order.
func Open(b Backend) (Backend, error) {
	if !b.IsSupported() {
		return nil, &UnavailableError{Backend: b.Name(), Err: ErrNotSupported}
	}
	if err := b.Setup(); err != nil {
		return nil, asUnavailable(b.Name(), err)
	}
	return b, nil
}

func asUnavailable(name string, err error) error {
	if ue, ok := err.(*UnavailableError); ok {
		if ue.Backend == "" {
			ue.Backend = name
		}
		return ue
	}
	return &UnavailableError{Backend: name, Err: err}
}
