// Package llvmcov implements testrunner.CoverageProvider by parsing the
// JSON export of `xcrun llvm-cov export`, the coverage format the Swift
// toolchain produces from a SwiftPM or xcodebuild test run.
package llvmcov

import (
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"

	"github.com/pproenca/mutate4swift/internal/execution"
)

// execContext mirrors testrunner's indirection for exec.CommandContext.
type execContext = func(ctx context.Context, name string, args ...string) *exec.Cmd

// Provider resolves covered lines by shelling out to `xcrun llvm-cov
// export --format=json` against a package's built profile data.
type Provider struct {
	execContext execContext
}

// NewProvider creates a Provider using exec.CommandContext.
func NewProvider() *Provider {
	return &Provider{execContext: exec.CommandContext}
}

// WithExecContext overrides the process starter, for tests.
func (p *Provider) WithExecContext(c execContext) *Provider {
	p.execContext = c

	return p
}

// CoveredLines implements testrunner.CoverageProvider.
func (p *Provider) CoveredLines(filePath, packagePath string) (map[int]bool, error) {
	profile := filepath.Join(packagePath, ".build", "debug", "codecov", "default.profdata")
	binary := filepath.Join(packagePath, ".build", "debug", filepath.Base(packagePath)+"PackageTests.xctest")

	cmd := p.execContext(context.Background(), "xcrun", "llvm-cov", "export",
		"--format=json", "--instr-profile="+profile, binary)

	out, err := cmd.Output()
	if err != nil {
		return nil, execution.ErrCoverageDataUnavailable
	}

	doc, err := parseExport(out)
	if err != nil {
		return nil, execution.ErrCoverageDataUnavailable
	}

	for _, data := range doc.Data {
		for _, f := range data.Files {
			if sameFile(f.Filename, filePath) {
				return coveredLinesFromSegments(f.Segments), nil
			}
		}
	}

	return map[int]bool{}, nil
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b) || filepath.Base(a) == filepath.Base(b)
}

type exportDoc struct {
	Data []struct {
		Files []struct {
			Filename string          `json:"filename"`
			Segments [][]interface{} `json:"segments"`
		} `json:"files"`
	} `json:"data"`
}

func parseExport(raw []byte) (*exportDoc, error) {
	var doc exportDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// coveredLinesFromSegments walks llvm-cov's segment list. Each segment
// marks the line/column where a region with a given execution count
// begins; that count holds until the next segment. A line is covered
// if it falls within a non-gap segment whose count is greater than
// zero.
func coveredLinesFromSegments(segments [][]interface{}) map[int]bool {
	covered := make(map[int]bool)

	for i, raw := range segments {
		line, count, hasCount, isGap, ok := parseSegment(raw)
		if !ok || !hasCount || count <= 0 || isGap {
			continue
		}

		end := line
		if i+1 < len(segments) {
			if nextLine, _, _, _, ok := parseSegment(segments[i+1]); ok && nextLine > line {
				end = nextLine - 1
			}
		}

		for l := line; l <= end; l++ {
			covered[l] = true
		}
	}

	return covered
}

func parseSegment(raw []interface{}) (line int, count int64, hasCount, isGap bool, ok bool) {
	if len(raw) < 6 {
		return 0, 0, false, false, false
	}

	lineF, ok1 := raw[0].(float64)
	countF, ok2 := raw[2].(float64)
	hasCountB, ok3 := raw[3].(bool)
	isGapB, ok4 := raw[5].(bool)

	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, 0, false, false, false
	}

	return int(lineF), int64(countF), hasCountB, isGapB, true
}
