// Package item defines the content item model shared by the local store and
// the repository mirror.
//
// An item is one unit of content moving through a review lifecycle. Its
// filename is the identity: unique within an account's local store and within
// the account's subtree of the mirror.
package item

import (
	"fmt"
	"sort"
	"time"
)

// Status is an item's lifecycle stage.
type Status string

const (
	// StatusGenerated marks freshly produced content awaiting review.
	StatusGenerated Status = "generated"

	// StatusReviewing marks content currently under review.
	StatusReviewing Status = "reviewing"

	// StatusReviewed marks content that passed review.
	StatusReviewed Status = "reviewed"

	// StatusRejected marks content that failed review.
	StatusRejected Status = "rejected"
)

// statusDirs is the fixed bijective mapping between a status and the
// directory holding items in that status inside the mirror. An item lives in
// exactly one of these directories per account at any time.
var statusDirs = map[Status]string{
	StatusGenerated: "drafts",
	StatusReviewing: "reviewing",
	StatusReviewed:  "approved",
	StatusRejected:  "rejected",
}

// dirStatuses is the inverse of statusDirs.
var dirStatuses = map[string]Status{}

func init() {
	for s, d := range statusDirs {
		dirStatuses[d] = s
	}
}

// IsValid reports whether s is one of the known lifecycle stages.
func (s Status) IsValid() bool {
	_, ok := statusDirs[s]
	return ok
}

// String returns the status value as stored in item metadata.
func (s Status) String() string {
	return string(s)
}

// Dir returns the mirror directory name for the status.
// Panics on an invalid status; validate first.
func (s Status) Dir() string {
	d, ok := statusDirs[s]
	if !ok {
		panic(fmt.Sprintf("invalid status %q", string(s)))
	}
	return d
}

// Label returns a human-readable label for commit messages and logs.
func (s Status) Label() string {
	switch s {
	case StatusGenerated:
		return "Draft"
	case StatusReviewing:
		return "Reviewing"
	case StatusReviewed:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// StatusForDir returns the status mapped to a mirror directory name.
func StatusForDir(dir string) (Status, bool) {
	s, ok := dirStatuses[dir]
	return s, ok
}

// StatusDirs returns all status directory names in a stable order.
func StatusDirs() []string {
	dirs := make([]string, 0, len(statusDirs))
	for _, d := range statusDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Item is a single unit of content.
type Item struct {
	// Filename is the item's identity, e.g. "my-first-post.md".
	Filename string

	// Status is the current lifecycle stage.
	Status Status

	// Meta holds free-form metadata. Values are scalars (string) or simple
	// lists ([]string). The reserved keys "status" and "synced_at" never
	// appear here; they are carried by the Status and SyncedAt fields.
	Meta map[string]any

	// Body is the free-text content following the metadata header.
	Body string

	// SyncedAt is set by the engine when the item is written into the
	// mirror. Zero for items that have never been synced.
	SyncedAt time.Time
}

// Validate checks the fields required before an item can be synced.
func (it *Item) Validate() error {
	if it.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if !it.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", string(it.Status))
	}
	return nil
}

// Title returns the item's title metadata, falling back to the filename.
func (it *Item) Title() string {
	if t, ok := it.Meta["title"].(string); ok && t != "" {
		return t
	}
	return it.Filename
}

// ContentEquals reports whether two items carry the same content: status,
// metadata and body. SyncedAt is deliberately excluded so that re-writing an
// unchanged item stays a no-op.
func (it *Item) ContentEquals(other *Item) bool {
	if other == nil {
		return false
	}
	if it.Status != other.Status || it.Body != other.Body {
		return false
	}
	if len(it.Meta) != len(other.Meta) {
		return false
	}
	for k, v := range it.Meta {
		if !valueEquals(v, other.Meta[k]) {
			return false
		}
	}
	return true
}

func valueEquals(a, b any) bool {
	al, aok := toStringList(a)
	bl, bok := toStringList(b)
	if aok != bok {
		return false
	}
	if aok {
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i] != bl[i] {
				return false
			}
		}
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, len(l))
		for i, e := range l {
			out[i] = fmt.Sprint(e)
		}
		return out, true
	default:
		return nil, false
	}
}
