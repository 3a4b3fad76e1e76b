package discovery

import (
	"fmt"

	"github.com/pproenca/mutate4swift/internal/execution"
	"github.com/pproenca/mutate4swift/internal/site"
)

// Discover enumerates every mutation site findable in source by lexing it
// once and running the structural scanner over the resulting token
// stream. fileName is used only for error messages.
func Discover(source []byte, fileName string) ([]site.MutationSite, error) {
	if len(source) == 0 {
		return nil, &execution.InvalidSourceFile{Reason: fmt.Sprintf("%s is empty", fileName)}
	}

	toks := Lex(source)
	sc := newScanner(source, toks)
	sites := sc.run()

	return FilterEquivalent(source, sites), nil
}

// FilterEquivalent drops sites whose mutation cannot change observable
// behavior: any candidate whose mutated text is byte-identical to its
// original text is a no-op by construction, regardless of family.
func FilterEquivalent(source []byte, sites []site.MutationSite) []site.MutationSite {
	filtered := make([]site.MutationSite, 0, len(sites))

	for _, candidate := range sites {
		if candidate.OriginalText == candidate.MutatedText {
			continue
		}

		filtered = append(filtered, candidate)
	}

	return filtered
}
