package driven

import "context"

// ContentStore holds raw uploaded bytes behind opaque references.
type ContentStore interface {
	// Put stores data and returns its reference
	Put(ctx context.Context, name string, data []byte) (ref string, err error)

	// Get reads the content behind ref
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes the content behind ref. Missing content is not an error.
	Delete(ctx context.Context, ref string) error
}
