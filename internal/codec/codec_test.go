package codec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skovand/scribesync/internal/item"
)

func testItem() *item.Item {
	return &item.Item{
		Filename: "first-post.md",
		Status:   item.StatusGenerated,
		Meta: map[string]any{
			"title": "First Post",
			"tags":  []string{"go", "sync"},
		},
		Body: "Hello, world.\n\nSecond paragraph.\n",
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	it := testItem()
	it.SyncedAt = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	data := Encode(it)

	got, err := Decode(data, it.Filename)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if got.Status != it.Status {
		t.Errorf("status = %q, want %q", got.Status, it.Status)
	}
	if !got.SyncedAt.Equal(it.SyncedAt) {
		t.Errorf("synced_at = %v, want %v", got.SyncedAt, it.SyncedAt)
	}
	if got.Body != it.Body {
		t.Errorf("body = %q, want %q", got.Body, it.Body)
	}
	if !got.ContentEquals(it) {
		t.Errorf("roundtrip changed content: %+v vs %+v", got, it)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := Encode(testItem())
	b := Encode(testItem())
	if string(a) != string(b) {
		t.Errorf("Encode() not deterministic:\n%s\nvs\n%s", a, b)
	}
}

func TestDecodeUnknownKeysKept(t *testing.T) {
	data := "status: reviewing\nslug: some-slug\nwordcount: 420\n\nbody text"
	it, err := Decode([]byte(data), "a.md")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if it.Status != item.StatusReviewing {
		t.Errorf("status = %q, want reviewing", it.Status)
	}
	if it.Meta["slug"] != "some-slug" {
		t.Errorf("slug = %v, want some-slug", it.Meta["slug"])
	}
	if _, ok := it.Meta["status"]; ok {
		t.Error("reserved key status leaked into Meta")
	}
	if it.Body != "body text" {
		t.Errorf("body = %q", it.Body)
	}
}

func TestDecodeBodyOnly(t *testing.T) {
	data := "Just a body.\n\nWith paragraphs but no header."
	it, err := Decode([]byte(data), "a.md")
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if it.Body != data {
		t.Errorf("body = %q, want the whole file", it.Body)
	}
	if len(it.Meta) != 0 {
		t.Errorf("meta = %v, want empty", it.Meta)
	}
}

func TestPlaceWritesAndIsIdempotent(t *testing.T) {
	root := t.TempDir()
	it := testItem()
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	wrote, err := Place(root, "acct", it, now)
	if err != nil {
		t.Fatalf("Place() failed: %v", err)
	}
	if !wrote {
		t.Fatal("first Place() did not write")
	}

	path := filepath.Join(root, "acct", "drafts", "first-post.md")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("item not at expected path: %v", err)
	}

	// Identical content, later timestamp: must be a no-op.
	wrote, err = Place(root, "acct", it, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Place() failed: %v", err)
	}
	if wrote {
		t.Error("second Place() wrote despite unchanged content")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "synced_at: 2026-08-26T10:00:00Z") {
		t.Errorf("synced_at was refreshed on a no-op write:\n%s", data)
	}
}

func TestPlaceOneLocationInvariant(t *testing.T) {
	root := t.TempDir()
	it := testItem()
	now := time.Now().UTC()

	// Seed stale copies in every status directory.
	for _, dir := range item.StatusDirs() {
		p := filepath.Join(root, "acct", dir)
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(p, it.Filename), []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	it.Status = item.StatusReviewed
	if _, err := Place(root, "acct", it, now); err != nil {
		t.Fatalf("Place() failed: %v", err)
	}

	for _, dir := range item.StatusDirs() {
		p := filepath.Join(root, "acct", dir, it.Filename)
		_, err := os.Stat(p)
		if dir == "approved" {
			if err != nil {
				t.Errorf("item missing from target dir %s: %v", dir, err)
			}
		} else if !os.IsNotExist(err) {
			t.Errorf("stale copy still present in %s", dir)
		}
	}
}

func TestPlaceRewritesOnBodyChange(t *testing.T) {
	root := t.TempDir()
	it := testItem()
	now := time.Now().UTC()

	if _, err := Place(root, "acct", it, now); err != nil {
		t.Fatal(err)
	}

	it.Body = "Edited body.\n"
	wrote, err := Place(root, "acct", it, now)
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Error("Place() skipped a genuine content change")
	}

	got, err := DecodeFile(filepath.Join(root, "acct", "drafts", it.Filename))
	if err != nil {
		t.Fatal(err)
	}
	if got.Body != "Edited body.\n" {
		t.Errorf("body = %q after rewrite", got.Body)
	}
}

func TestPlaceRejectsInvalidItem(t *testing.T) {
	if _, err := Place(t.TempDir(), "acct", &item.Item{Filename: "a.md", Status: "bogus"}, time.Now()); err == nil {
		t.Error("Place() accepted an invalid status")
	}
}
