package item

import "testing"

func TestStatusDirMapping(t *testing.T) {
	tests := []struct {
		status Status
		dir    string
	}{
		{StatusGenerated, "drafts"},
		{StatusReviewing, "reviewing"},
		{StatusReviewed, "approved"},
		{StatusRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Dir(); got != tt.dir {
				t.Errorf("Dir() = %q, want %q", got, tt.dir)
			}
			back, ok := StatusForDir(tt.dir)
			if !ok || back != tt.status {
				t.Errorf("StatusForDir(%q) = %v, %v; want %v, true", tt.dir, back, ok, tt.status)
			}
		})
	}
}

func TestStatusForDirUnknown(t *testing.T) {
	if _, ok := StatusForDir("attic"); ok {
		t.Error("StatusForDir(attic) reported ok for unknown directory")
	}
}

func TestValidate(t *testing.T) {
	it := &Item{Filename: "a.md", Status: StatusGenerated}
	if err := it.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	it = &Item{Status: StatusGenerated}
	if err := it.Validate(); err == nil {
		t.Error("Validate() accepted empty filename")
	}

	it = &Item{Filename: "a.md", Status: Status("draft")}
	if err := it.Validate(); err == nil {
		t.Error("Validate() accepted unknown status")
	}
}

func TestContentEquals(t *testing.T) {
	base := func() *Item {
		return &Item{
			Filename: "a.md",
			Status:   StatusGenerated,
			Meta:     map[string]any{"title": "A", "tags": []string{"x", "y"}},
			Body:     "hello",
		}
	}

	a, b := base(), base()
	if !a.ContentEquals(b) {
		t.Error("identical items reported unequal")
	}

	// SyncedAt must not affect equality.
	b = base()
	b.SyncedAt = a.SyncedAt.AddDate(0, 0, 1)
	if !a.ContentEquals(b) {
		t.Error("SyncedAt difference reported as content change")
	}

	// Lists decoded from YAML arrive as []any.
	b = base()
	b.Meta["tags"] = []any{"x", "y"}
	if !a.ContentEquals(b) {
		t.Error("[]string vs []any with same elements reported unequal")
	}

	b = base()
	b.Body = "changed"
	if a.ContentEquals(b) {
		t.Error("body change not detected")
	}

	b = base()
	b.Status = StatusReviewing
	if a.ContentEquals(b) {
		t.Error("status change not detected")
	}

	b = base()
	b.Meta["tags"] = []string{"x"}
	if a.ContentEquals(b) {
		t.Error("list length change not detected")
	}
}

func TestTitle(t *testing.T) {
	it := &Item{Filename: "a.md", Meta: map[string]any{"title": "Hello"}}
	if got := it.Title(); got != "Hello" {
		t.Errorf("Title() = %q, want Hello", got)
	}
	it = &Item{Filename: "a.md"}
	if got := it.Title(); got != "a.md" {
		t.Errorf("Title() fallback = %q, want a.md", got)
	}
}
