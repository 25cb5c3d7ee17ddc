package notes

import "github.com/google/uuid"

// IDProvider issues identifiers for new notes.
type IDProvider interface {
	NewID() (string, error)
}

// IDProviderFunc adapts a plain function to IDProvider.
type IDProviderFunc func() (string, error)

// NewID calls the wrapped function.
func (f IDProviderFunc) NewID() (string, error) {
	return f()
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers, so
// identifiers sort by creation time.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
