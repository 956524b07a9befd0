package lowering

import "errors"

// Scope guarantees release of device buffers and temporary copies acquired
// during one lowering, on every exit path. Releases run in LIFO order when
// the scope closes.
type Scope struct {
	releases []func() error
	closed   bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Defer registers a release to run when the scope closes.
func (s *Scope) Defer(release func() error) {
	s.releases = append(s.releases, release)
}

// Close runs every registered release in LIFO order and returns their joined
// errors. Closing twice is a no-op.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.releases) - 1; i >= 0; i-- {
		if err := s.releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.releases = nil
	return errors.Join(errs...)
}
