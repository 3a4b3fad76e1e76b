package diffscope

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/pproenca/mutate4swift/internal/configuration"
	"github.com/pproenca/mutate4swift/internal/log"
)

// New creates a new Diff by parsing git diff output using the default
// command executor.
func New() (Diff, error) {
	return NewWithCmd(exec.Command)
}

type execCmd interface {
	CombinedOutput() ([]byte, error)
}

// NewWithCmd creates a new Diff by parsing git diff output using a custom
// command executor. This is useful for testing.
func NewWithCmd[T execCmd](cmdContext func(name string, args ...string) T) (Diff, error) {
	diffRef := configuration.Get[string](configuration.RunDiffRefKey)
	if diffRef == "" {
		return nil, nil
	}

	log.Infoln("Gathering files diff...")

	cmd := cmdContext("git", "diff", "--merge-base", diffRef)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("an error occurred while calling git diff: %w\n\n%s", err, out)
	}

	files, _, err := gitdiff.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("an error occurred while parsing diff: %w", err)
	}

	return newDiff(files), nil
}
