package engine

import (
	"context"
	"fmt"
	"path"

	"github.com/skovand/scribesync/internal/hosting"
)

// DeployFile is one artifact to publish through the hosting content API.
type DeployFile struct {
	// Path is the repository-relative destination, forward slashes.
	Path string

	Content []byte
}

// Deploy publishes artifacts directly through the hosting API, bypassing the
// mirror clone entirely. Files whose remote blob already matches are skipped,
// so repeated deployments of the same artifacts make no commits. Returns the
// number of files uploaded.
//
// Deploy does not take the in-flight guard: it never touches the mirror's
// working tree, so it is safe alongside a running sync.
func (e *Engine) Deploy(ctx context.Context, files []DeployFile) (int, error) {
	uploaded := 0
	for _, f := range files {
		if f.Path == "" {
			return uploaded, fmt.Errorf("deploy file with empty path")
		}

		prevSHA, err := e.hosting.GetFileSHA(ctx, f.Path)
		if err != nil {
			return uploaded, fmt.Errorf("failed to check %s: %w", f.Path, err)
		}
		if prevSHA != "" && prevSHA == hosting.BlobSHA(f.Content) {
			e.logger.Printf("deploy %s: unchanged, skipping", f.Path)
			continue
		}

		msg := fmt.Sprintf("Deploy %s", path.Base(f.Path))
		if err := e.hosting.UploadFile(ctx, f.Path, f.Content, prevSHA, msg); err != nil {
			return uploaded, fmt.Errorf("failed to upload %s: %w", f.Path, err)
		}
		e.logger.Printf("deployed %s", f.Path)
		uploaded++
	}
	return uploaded, nil
}
