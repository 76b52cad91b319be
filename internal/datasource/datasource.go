// Package datasource defines the contract for pipeline inputs. Concrete
// sources (local files, HTTP downloads) live in subpackages.
package datasource

import (
	"context"
	"io"
)

// Source is one input the loaders can open. Path identifies the source in
// logs and error messages.
type Source interface {
	Path() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
