// Package diffscope parses git diff output to identify changed lines for
// incremental mutation testing (the --diff-ref mode).
package diffscope

import (
	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// FileName represents a file path in a diff.
type FileName string

// Change represents a contiguous range of changed lines in a file.
type Change struct {
	StartLine int
	EndLine   int
}

// Diff maps file names to their list of changes.
type Diff map[FileName][]Change

func newDiff(files []*gitdiff.File) Diff {
	result := map[FileName][]Change{}

	for _, file := range files {
		name, changes := newChanges(file)

		result[name] = changes
	}

	return result
}

func newChanges(file *gitdiff.File) (FileName, []Change) {
	var changes []Change

	for _, fragment := range file.TextFragments {
		if fragment.LinesAdded == 0 {
			continue
		}

		startLine := int(fragment.NewPosition + fragment.LeadingContext)

		changes = append(changes, Change{
			StartLine: startLine,
			EndLine:   startLine + int(fragment.LinesAdded) - 1,
		})
	}

	return FileName(file.NewName), changes
}

// IsChanged returns true if the given file/line is within a changed
// region. If the diff is empty, it returns true for all positions —
// incremental mode only narrows the allowlist once a diff is present.
func (d Diff) IsChanged(fileName string, line int) bool {
	if len(d) == 0 {
		return true
	}

	for _, change := range d[FileName(fileName)] {
		if line >= change.StartLine && line <= change.EndLine {
			return true
		}
	}

	return false
}
