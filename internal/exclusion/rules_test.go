package exclusion

import (
	"testing"

	"github.com/pproenca/mutate4swift/internal/configuration"
)

var testPath = []string{
	"Sources/Foo/test.swift",
	"Sources/Foo/something.swift",
	"internal/test.swift",
}

func TestRules_IsFileExcluded(t *testing.T) {
	t.Run("must exclude files by regexp", func(t *testing.T) {
		defer configuration.Reset()
		ss := []any{"test", "internal"}
		configuration.Set(configuration.RunExcludeFilesKey, ss)

		rules, err := New()
		if err != nil || countTrue(testPath, rules.IsFileExcluded) != 2 {
			t.Error("must match 2 paths")
		}
	})

	t.Run("must return parsing error", func(t *testing.T) {
		defer configuration.Reset()
		ss := []any{"test", "internal[[["}
		configuration.Set(configuration.RunExcludeFilesKey, ss)

		rules, err := New()
		if err == nil || rules != nil {
			t.Error("must return error")
		}
	})

	t.Run("falls back to default excluded dirs when unconfigured", func(t *testing.T) {
		defer configuration.Reset()
		configuration.Set(configuration.RunExcludeFilesKey, []string(nil))

		rules, err := New()
		if err != nil || len(rules) != len(DefaultExcludedDirs) {
			t.Error("must fall back to the default excluded dirs")
		}

		if !rules.IsFileExcluded("Sources/Example/generated/Thing.swift") {
			t.Error("must match the default generated/ pattern")
		}
	})
}

func countTrue(ss []string, f func(s string) bool) int {
	count := 0

	for _, s := range ss {
		if f(s) {
			count++
		}
	}

	return count
}
