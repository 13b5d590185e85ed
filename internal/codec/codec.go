// Package codec maps content items to and from their on-disk representation
// inside the repository mirror.
//
// The canonical file format is a metadata header of YAML "key: value" lines
// (scalars and simple string lists), a blank line, then the free-text body.
// The header always carries the item's status and the server-set synced_at
// timestamp; everything else is passed through opaquely.
//
// Placement enforces the one-location invariant: an item's filename exists in
// at most one status directory per account, and a write only happens when the
// content actually differs from what is already on disk, keeping commits and
// diffs minimal.
package codec

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skovand/scribesync/internal/item"
)

// Reserved metadata keys carried by Item fields rather than Item.Meta.
const (
	keyStatus   = "status"
	keySyncedAt = "synced_at"
)

// Encode serializes an item into the canonical file format.
// Header keys are emitted in a stable order so that encoding is
// deterministic: status, synced_at, then remaining metadata sorted by key.
func Encode(it *item.Item) []byte {
	var buf bytes.Buffer

	// Status values and RFC 3339 timestamps never need quoting; emitting them
	// directly keeps the header byte-stable across yaml encoder versions.
	fmt.Fprintf(&buf, "%s: %s\n", keyStatus, it.Status.String())
	if !it.SyncedAt.IsZero() {
		fmt.Fprintf(&buf, "%s: %s\n", keySyncedAt, it.SyncedAt.UTC().Format(time.RFC3339))
	}

	keys := make([]string, 0, len(it.Meta))
	for k := range it.Meta {
		if k == keyStatus || k == keySyncedAt {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeaderLine(&buf, k, it.Meta[k])
	}

	buf.WriteString("\n")
	buf.WriteString(it.Body)
	return buf.Bytes()
}

// writeHeaderLine emits one "key: value" header entry. Marshaling each key
// separately through yaml keeps quoting correct without losing key order.
func writeHeaderLine(buf *bytes.Buffer, key string, value any) {
	out, err := yaml.Marshal(map[string]any{key: value})
	if err != nil {
		// Metadata values are strings and string lists; marshal cannot
		// fail for those. Fall back to a plain line just in case.
		fmt.Fprintf(buf, "%s: %v\n", key, value)
		return
	}
	buf.Write(out)
}

// Decode parses the canonical file format back into an item. The status and
// synced_at header keys populate the corresponding fields; unknown keys land
// in Meta untouched. A file without a parseable header decodes as body-only.
func Decode(data []byte, filename string) (*item.Item, error) {
	header, body := splitHeader(data)

	it := &item.Item{
		Filename: filename,
		Meta:     map[string]any{},
		Body:     body,
	}

	if header == "" {
		return it, nil
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		// Not a metadata header after all; the whole file is body.
		it.Body = string(data)
		return it, nil
	}

	for k, v := range meta {
		switch k {
		case keyStatus:
			it.Status = item.Status(fmt.Sprint(v))
		case keySyncedAt:
			// yaml resolves timestamp-shaped scalars to time.Time.
			switch tv := v.(type) {
			case time.Time:
				it.SyncedAt = tv
			default:
				if ts, err := time.Parse(time.RFC3339, fmt.Sprint(v)); err == nil {
					it.SyncedAt = ts
				}
			}
		default:
			it.Meta[k] = v
		}
	}
	return it, nil
}

// DecodeFile reads and decodes one item file.
func DecodeFile(path string) (*item.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item file: %w", err)
	}
	return Decode(data, filepath.Base(path))
}

// splitHeader splits the file at the first blank line. When the leading block
// does not parse as a YAML mapping the caller treats the whole file as body.
func splitHeader(data []byte) (header, body string) {
	s := string(data)
	idx := strings.Index(s, "\n\n")
	if idx < 0 {
		// No blank line: a header-only file (body may legitimately be
		// empty) or a body with no header. Try it as a header first.
		meta := map[string]any{}
		if yaml.Unmarshal(data, &meta) == nil && len(meta) > 0 {
			return s, ""
		}
		return "", s
	}
	return s[:idx+1], s[idx+2:]
}

// Place writes an item into its status directory under root/accountDir,
// removing stale copies from every other status directory first. The file is
// only (re)written when status, metadata or body differ from what is on disk;
// synced_at alone never forces a write. Reports whether a write happened.
func Place(root, accountDir string, it *item.Item, now time.Time) (bool, error) {
	if err := it.Validate(); err != nil {
		return false, err
	}

	base := filepath.Join(root, accountDir)
	target := filepath.Join(base, it.Status.Dir(), it.Filename)

	// One-location invariant: drop the filename from all other status dirs.
	for _, dir := range item.StatusDirs() {
		if dir == it.Status.Dir() {
			continue
		}
		stale := filepath.Join(base, dir, it.Filename)
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to remove stale copy %s: %w", stale, err)
		}
	}

	if existing, err := DecodeFile(target); err == nil && existing.ContentEquals(it) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("failed to create status directory: %w", err)
	}

	out := *it
	out.SyncedAt = now
	if err := os.WriteFile(target, Encode(&out), 0o644); err != nil {
		return false, fmt.Errorf("failed to write item file: %w", err)
	}
	return true, nil
}
