package hosting

import (
	"crypto/sha1"
	"fmt"
)

// BlobSHA computes the canonical git blob hash of content, the value the
// contents API reports for a file. Comparing it against the remote's current
// hash lets deployment skip unchanged files without downloading them.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}
