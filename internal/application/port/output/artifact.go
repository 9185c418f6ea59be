package output

import "context"

type ArtifactPort interface {
	// Save writes data to path and returns the path actually written.
	Save(ctx context.Context, path string, data []byte) (string, error)
}
