package discovery

import "github.com/pproenca/mutate4swift/internal/site"

// binaryOperatorSwaps maps each arithmetic/comparison/logical/bitwise/range
// operator to its mutation partner. Each family swaps within its own
// closed set so the mutated program keeps type-checking.
var binaryOperatorSwaps = map[string]struct {
	to       string
	operator site.MutationOperator
}{
	"+": {"-", site.Arithmetic},
	"-": {"+", site.Arithmetic},
	"*": {"/", site.Arithmetic},
	"/": {"*", site.Arithmetic},
	"%": {"*", site.Arithmetic},

	"==": {"!=", site.Comparison},
	"!=": {"==", site.Comparison},
	"<":  {"<=", site.Comparison},
	"<=": {"<", site.Comparison},
	">":  {">=", site.Comparison},
	">=": {">", site.Comparison},

	"&&": {"||", site.Logical},
	"||": {"&&", site.Logical},

	"&": {"|", site.Bitwise},
	"|": {"&", site.Bitwise},
	"^": {"&", site.Bitwise},
	"<<": {">>", site.Bitwise},
	">>": {"<<", site.Bitwise},

	"..<": {"...", site.Range},
	"...": {"..<", site.Range},
}

// compoundAssignmentSwaps maps each compound-assignment operator to its
// mutation partner, analogous to binaryOperatorSwaps.
var compoundAssignmentSwaps = map[string]string{
	"+=":  "-=",
	"-=":  "+=",
	"*=":  "/=",
	"/=":  "*=",
	"&=":  "|=",
	"|=":  "&=",
	"<<=": ">>=",
	">>=": "<<=",
}

// unaryPrefixSwaps maps a unary prefix operator token to its mutation
// partner for UnarySign. "!" is handled separately (UnaryRemoval) since
// negating a boolean has no sibling operator to swap to.
var unaryPrefixSwaps = map[string]string{
	"-": "+",
	"+": "-",
}

// stdlibSemanticSwaps maps a bare identifier call name to its semantic
// opposite, used for the StdlibSemantic family (min/max and similar
// paired standard-library functions).
var stdlibSemanticSwaps = map[string]string{
	"min": "max",
	"max": "min",
}

// loopControlSwaps maps a loop-control keyword to its mutation partner.
var loopControlSwaps = map[string]string{
	"break":    "continue",
	"continue": "break",
}
