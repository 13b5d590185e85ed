package gitx

import (
	"errors"
	"fmt"
	"testing"
)

func execErr(stdout, stderr string) error {
	return &ExecError{
		Args:   []string{"pull", "origin", "main"},
		Err:    errors.New("exit status 1"),
		Stdout: stdout,
		Stderr: stderr,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{
			name: "merge conflict in file",
			err:  execErr("CONFLICT (content): Merge conflict in posts/a.md\nAutomatic merge failed; fix conflicts and then commit the result.", ""),
			want: Conflict,
		},
		{
			name: "unmerged files left behind",
			err:  execErr("", "error: Pulling is not possible because you have unmerged files."),
			want: Conflict,
		},
		{
			name: "mixed case unresolved conflict",
			err:  execErr("", "error: 'merge' is not possible because you have Unresolved Conflict."),
			want: Conflict,
		},
		{
			name: "empty remote on pull",
			err:  execErr("", "fatal: couldn't find remote ref main"),
			want: EmptyRemote,
		},
		{
			name: "cloned empty repository",
			err:  execErr("", "warning: You appear to have cloned an empty repository."),
			want: EmptyRemote,
		},
		{
			name: "dirty working tree",
			err:  execErr("", "error: Your local changes to the following files would be overwritten by merge:\n\tposts/a.md\nPlease commit your changes or stash them before you merge."),
			want: DirtyTree,
		},
		{
			name: "dirty tree wins over merge wording",
			err:  execErr("", "error: Your local changes would be overwritten by merge"),
			want: DirtyTree,
		},
		{
			name: "unrelated failure",
			err:  execErr("", "fatal: unable to access 'https://github.com/a/b.git/': Could not resolve host"),
			want: Unknown,
		},
		{
			name: "nil error",
			err:  nil,
			want: Unknown,
		},
		{
			name: "plain error without exec details",
			err:  errors.New("CONFLICT somewhere"),
			want: Unknown,
		},
		{
			name: "wrapped exec error",
			err:  fmt.Errorf("pull step: %w", execErr("CONFLICT (content): Merge conflict in x", "")),
			want: Conflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureClassString(t *testing.T) {
	pairs := map[FailureClass]string{
		Unknown:     "unknown",
		EmptyRemote: "empty-remote",
		Conflict:    "conflict",
		DirtyTree:   "dirty-tree",
	}
	for c, want := range pairs {
		if c.String() != want {
			t.Errorf("%d.String() = %q, want %q", c, c.String(), want)
		}
	}
}
