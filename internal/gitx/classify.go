package gitx

import (
	"errors"
	"strings"
)

// FailureClass is the recovery-relevant category of a failed git command.
type FailureClass int

const (
	// Unknown means no recovery strategy applies; the caller must treat the
	// failure as fatal for the current run.
	Unknown FailureClass = iota

	// EmptyRemote means the remote has no commits (or no such ref yet).
	// Pulling from it is vacuously successful.
	EmptyRemote

	// Conflict means a merge conflict or leftover unmerged paths.
	Conflict

	// DirtyTree means uncommitted local changes block the operation.
	DirtyTree
)

// String returns the class name for logging.
func (c FailureClass) String() string {
	switch c {
	case EmptyRemote:
		return "empty-remote"
	case Conflict:
		return "conflict"
	case DirtyTree:
		return "dirty-tree"
	default:
		return "unknown"
	}
}

// Substring patterns git emits for each recoverable condition. Matching is
// case-insensitive; git mixes "CONFLICT (content)" with lowercase hints.
var (
	emptyRemotePatterns = []string{
		"couldn't find remote ref",
		"no such remote ref",
		"remote repository is empty",
		"you appear to have cloned an empty repository",
		"fatal: couldn't find remote ref",
	}
	conflictPatterns = []string{
		"conflict",
		"unmerged files",
		"needs merge",
		"not possible because you have unmerged files",
		"unresolved conflict",
	}
	dirtyTreePatterns = []string{
		"local changes would be overwritten",
		"would be overwritten by merge",
		"would be overwritten by checkout",
		"please commit your changes or stash them",
	}
)

// Classify maps a failed git invocation to a FailureClass by inspecting its
// captured output. Non-ExecError values classify as Unknown.
func Classify(err error) FailureClass {
	if err == nil {
		return Unknown
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		return Unknown
	}
	return classifyOutput(execErr.Output())
}

func classifyOutput(out string) FailureClass {
	lower := strings.ToLower(out)

	// Dirty tree is checked before conflict: its messages can mention
	// "merge" context lines, but never the other way around.
	for _, p := range dirtyTreePatterns {
		if strings.Contains(lower, p) {
			return DirtyTree
		}
	}
	for _, p := range emptyRemotePatterns {
		if strings.Contains(lower, p) {
			return EmptyRemote
		}
	}
	for _, p := range conflictPatterns {
		if strings.Contains(lower, p) {
			return Conflict
		}
	}
	return Unknown
}
