// Package store is the filesystem-backed local item store.
//
// The store is the primary home of content items; the sync engine reconciles
// it against the repository mirror but never invents items of its own. Items
// live at {root}/{account}/{filename} in the same file format the mirror
// uses.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skovand/scribesync/internal/codec"
	"github.com/skovand/scribesync/internal/item"
)

// FileStore stores each account's items as flat files under one root.
type FileStore struct {
	root string
}

// New returns a FileStore rooted at dir.
func New(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the store's base directory.
func (s *FileStore) Root() string {
	return s.root
}

// List returns all items of an account. A missing account directory is an
// empty store, not an error.
func (s *FileStore) List(account string) ([]*item.Item, error) {
	dir := filepath.Join(s.root, account)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list items for %s: %w", account, err)
	}

	var items []*item.Item
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		it, err := codec.DecodeFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", e.Name(), err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Get reads one item by filename.
func (s *FileStore) Get(account, filename string) (*item.Item, error) {
	return codec.DecodeFile(filepath.Join(s.root, account, filename))
}

// Put writes an item and reports whether the stored content changed. When
// only the sync timestamp differs the file is refreshed in place but the
// write is not reported as a change; the timestamp records that the item has
// been seen in the mirror and guards it against first-run deletion sweeps.
func (s *FileStore) Put(account string, it *item.Item) (bool, error) {
	if err := it.Validate(); err != nil {
		return false, err
	}

	path := filepath.Join(s.root, account, it.Filename)
	if existing, err := codec.DecodeFile(path); err == nil && existing.ContentEquals(it) {
		if existing.SyncedAt.Equal(it.SyncedAt) {
			return false, nil
		}
		if werr := os.WriteFile(path, codec.Encode(it), 0o644); werr != nil {
			return false, fmt.Errorf("failed to write item: %w", werr)
		}
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create account directory: %w", err)
	}
	if err := os.WriteFile(path, codec.Encode(it), 0o644); err != nil {
		return false, fmt.Errorf("failed to write item: %w", err)
	}
	return true, nil
}

// Delete removes an item. Deleting an absent item is not an error.
func (s *FileStore) Delete(account, filename string) error {
	err := os.Remove(filepath.Join(s.root, account, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete item %s: %w", filename, err)
	}
	return nil
}
