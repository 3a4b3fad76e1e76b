package discovery

import (
	"math"
	"strconv"
	"strings"

	"github.com/pproenca/mutate4swift/internal/site"
)

type blockKind int

const (
	blockOther blockKind = iota
	blockLoop
	blockSwitch
)

// scanner walks a token stream once, maintaining just enough structural
// state (brace depth, loop/switch context, a pending block-kind hint) to
// place every mutation family from the catalog.
//
// pend records the block kind the next "{" should open: a non-nil value
// forces that kind (for/while/repeat/switch open a new loop/switch scope,
// func forces a reset to blockOther since break/continue cannot cross a
// function boundary); nil means the next "{" inherits the kind of its
// immediately enclosing block, which is how an if/else/do/catch body
// nested inside a loop still counts as loop context for break/continue.
type scanner struct {
	src         []byte
	toks        []Token
	sites       []site.MutationSite
	blocks      []blockKind
	pend        *blockKind
	literalPool []string
}

func newScanner(src []byte, toks []Token) *scanner {
	return &scanner{src: src, toks: toks, literalPool: collectIdentifierLiterals(toks)}
}

// collectIdentifierLiterals makes a single pre-pass over the token stream
// to build the file's literal pool: the inner text of every non-empty,
// non-triple-quoted string literal that looks like an identifier, in
// collection (appearance) order. tailoredIdentifierLiteral swaps a
// literal for the first other pool member with different text.
func collectIdentifierLiterals(toks []Token) []string {
	var pool []string
	for _, t := range toks {
		if t.Kind != TokString || strings.HasPrefix(t.Text, `"""`) {
			continue
		}

		inner := strings.TrimSuffix(strings.TrimPrefix(t.Text, `"`), `"`)
		if isIdentifierLiteral(inner) {
			pool = append(pool, inner)
		}
	}

	return pool
}

func kindPtr(k blockKind) *blockKind { return &k }

func (s *scanner) text(from, to int) string {
	return string(s.src[from:to])
}

func (s *scanner) emit(op site.MutationOperator, start Token, end Token, original, mutated string) {
	s.sites = append(s.sites, site.MutationSite{
		Operator:     op,
		Line:         start.Line,
		Column:       start.Column,
		ByteOffset:   start.Offset,
		ByteLength:   end.Offset + len(end.Text) - start.Offset,
		OriginalText: original,
		MutatedText:  mutated,
	})
}

func (s *scanner) run() []site.MutationSite {
	for i := 0; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.Kind == TokEOF {
			break
		}

		switch t.Kind {
		case TokKeyword:
			s.handleKeyword(i)
		case TokOperator:
			s.handleOperator(i)
		case TokNumber:
			s.handleNumber(i)
		case TokString:
			s.handleString(i)
		case TokIdent:
			s.handleIdent(i)
		case TokPunct:
			s.handlePunct(i)
		}
	}

	return s.sites
}

func (s *scanner) handlePunct(i int) {
	t := s.toks[i]
	switch t.Text {
	case "{":
		kind := s.currentBlock()
		if s.pend != nil {
			kind = *s.pend
		}
		s.blocks = append(s.blocks, kind)
		s.pend = nil
	case "}":
		if len(s.blocks) > 0 {
			s.blocks = s.blocks[:len(s.blocks)-1]
		}
	}
}

func (s *scanner) currentBlock() blockKind {
	if len(s.blocks) == 0 {
		return blockOther
	}

	return s.blocks[len(s.blocks)-1]
}

func (s *scanner) handleKeyword(i int) {
	t := s.toks[i]

	switch t.Text {
	case "for", "repeat":
		s.pend = kindPtr(blockLoop)
	case "switch":
		s.pend = kindPtr(blockSwitch)
	case "func":
		s.pend = kindPtr(blockOther)
	case "else", "do", "catch":
		s.pend = nil
	case "true", "false":
		s.handleBooleanLiteral(i)
	case "try":
		s.handleTry(i)
	case "as":
		s.handleCast(i)
	case "while":
		s.pend = kindPtr(blockLoop)
		s.handleConditionNegate(i)
	case "if":
		s.pend = nil
		s.handleConditionNegate(i)
	case "guard":
		s.pend = nil
		s.handleGuardNegate(i)
	case "return":
		s.handleReturn(i)
	case "defer":
		s.handleDefer(i)
	case "break", "continue":
		s.handleLoopControl(i)
	}
}

func (s *scanner) handleBooleanLiteral(i int) {
	t := s.toks[i]
	mutated := "false"
	if t.Text == "false" {
		mutated = "true"
	}
	s.emit(site.Boolean, t, t, t.Text, mutated)
}

// handleTry mutates between the three strengths: try, try?, try!.
func (s *scanner) handleTry(i int) {
	t := s.toks[i]
	next := s.lookahead(i, 1)

	switch {
	case next != nil && next.Text == "?":
		s.emit(site.TryMutation, t, *next, "try?", "try!")
	case next != nil && next.Text == "!":
		s.emit(site.TryMutation, t, *next, "try!", "try?")
	default:
		s.emit(site.TryMutation, t, t, "try", "try?")
		s.emit(site.TryMutation, t, t, "try", "try!")
	}
}

// handleCast mutates as? <-> as!. A bare "as" is left untouched: it is a
// non-optional cast whose failure is a compile error, not a runtime
// behavior this catalog can safely invert.
func (s *scanner) handleCast(i int) {
	t := s.toks[i]
	next := s.lookahead(i, 1)
	if next == nil {
		return
	}

	switch next.Text {
	case "?":
		s.emit(site.CastStrength, t, *next, "as?", "as!")
	case "!":
		s.emit(site.CastStrength, t, *next, "as!", "as?")
	}
}

func (s *scanner) handleConditionNegate(i int) {
	end := s.findBlockOpenBrace(i + 1)
	if end < 0 {
		return
	}

	condStart := s.toks[i+1]
	condEnd := s.toks[end-1]
	cond := s.text(condStart.Offset, condEnd.Offset+len(condEnd.Text))

	s.emit(site.ConditionNegate, condStart, condEnd, cond, "!("+cond+")")
}

func (s *scanner) handleGuardNegate(i int) {
	elseIdx := s.findGuardElse(i + 1)
	if elseIdx < 0 {
		return
	}

	condStart := s.toks[i+1]
	condEnd := s.toks[elseIdx-1]
	cond := s.text(condStart.Offset, condEnd.Offset+len(condEnd.Text))

	s.emit(site.GuardNegate, condStart, condEnd, cond, "!("+cond+")")
}

// findGuardElse returns the index of the "else" keyword closing a guard
// condition, scanning at bracket depth 0 only.
func (s *scanner) findGuardElse(start int) int {
	depth := 0
	for i := start; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.Kind == TokEOF {
			return -1
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case "else":
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// findBlockOpenBrace returns the index of the "{" that opens the body
// following an if/while condition, scanning at bracket depth 0.
func (s *scanner) findBlockOpenBrace(start int) int {
	depth := 0
	for i := start; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.Kind == TokEOF {
			return -1
		}
		switch t.Text {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		case "{":
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

func (s *scanner) handleReturn(i int) {
	next := s.lookahead(i, 1)
	if next == nil || isStatementTerminator(*next, s.toks[i]) {
		return
	}

	end := s.scanExpressionEnd(i + 1)
	if end < i+1 {
		return
	}

	ret := s.toks[i]
	exprStart := s.toks[i+1]
	exprEnd := s.toks[end]
	expr := s.text(exprStart.Offset, exprEnd.Offset+len(exprEnd.Text))
	original := s.text(ret.Offset, exprEnd.Offset+len(exprEnd.Text))

	s.emit(site.ReturnValue, ret, exprEnd, original, "return")

	if end == i+1 {
		if mutated, ok := typedDefault(exprStart); ok && mutated != expr {
			s.emit(site.TypedReturnDefault, ret, exprEnd, original, "return "+mutated)
		}
	}
}

// typedDefault returns a same-kind-but-different literal for a single
// literal token, used by TypedReturnDefault.
func typedDefault(t Token) (string, bool) {
	switch t.Kind {
	case TokNumber:
		if t.Text == "0" {
			return "1", true
		}

		return "0", true
	case TokKeyword:
		switch t.Text {
		case "true":
			return "false", true
		case "false":
			return "true", true
		}
	case TokString:
		if t.Text == `""` {
			return `"mutated"`, true
		}

		return `""`, true
	}

	return "", false
}

func isStatementTerminator(next, prev Token) bool {
	if next.Line != prev.Line {
		return true
	}

	return next.Text == "}"
}

func (s *scanner) handleDefer(i int) {
	open := i + 1
	if open >= len(s.toks) || s.toks[open].Text != "{" {
		return
	}

	closeIdx := s.matchBrace(open)
	if closeIdx < 0 {
		return
	}

	start := s.toks[i]
	end := s.toks[closeIdx]
	block := s.text(start.Offset, end.Offset+len(end.Text))

	s.emit(site.DeferRemoval, start, end, block, "")
}

func (s *scanner) matchBrace(openIdx int) int {
	depth := 0
	for i := openIdx; i < len(s.toks); i++ {
		switch s.toks[i].Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return i
			}
		}
		if s.toks[i].Kind == TokEOF {
			return -1
		}
	}

	return -1
}

func (s *scanner) handleLoopControl(i int) {
	t := s.toks[i]
	if s.currentBlock() != blockLoop {
		return
	}

	if to, ok := loopControlSwaps[t.Text]; ok {
		s.emit(site.LoopControl, t, t, t.Text, to)
	}
}

func (s *scanner) handleOperator(i int) {
	t := s.toks[i]

	if swap, ok := binaryOperatorSwaps[t.Text]; ok && !s.isUnaryPosition(i) {
		s.emit(swap.operator, t, t, t.Text, swap.to)

		return
	}

	if to, ok := compoundAssignmentSwaps[t.Text]; ok {
		s.emit(site.CompoundAssignment, t, t, t.Text, to)

		return
	}

	switch t.Text {
	case "-", "+":
		if s.isUnaryPosition(i) {
			to := unaryPrefixSwaps[t.Text]
			s.emit(site.UnarySign, t, t, t.Text, to)
		}
	case "!":
		if s.isUnaryPosition(i) {
			next := s.lookahead(i, 1)
			if next != nil {
				end := s.scanExpressionEnd(i + 1)
				if end >= i+1 {
					exprEnd := s.toks[end]
					expr := s.text(t.Offset, exprEnd.Offset+len(exprEnd.Text))
					mutated := s.text(next.Offset, exprEnd.Offset+len(exprEnd.Text))
					s.emit(site.UnaryRemoval, t, exprEnd, expr, mutated)
				}
			}
		}
	case "?.":
		s.emit(site.OptionalChaining, t, t, "?.", "!.")
	case "!.":
		s.emit(site.OptionalChaining, t, t, "!.", "?.")
	case "??":
		s.handleNilCoalescing(i)
	case "?":
		s.handleTernary(i)
	}
}

// isUnaryPosition reports whether the operator at index i is in prefix
// (unary) position: the previous significant token is absent, or is
// itself an operator/opening-bracket/keyword that cannot end an
// expression.
func (s *scanner) isUnaryPosition(i int) bool {
	prev := s.lookbehind(i, 1)
	if prev == nil {
		return true
	}

	switch prev.Kind {
	case TokIdent, TokNumber, TokString:
		return false
	case TokPunct:
		return prev.Text != ")" && prev.Text != "]"
	case TokKeyword:
		return prev.Text != "self" && prev.Text != "Self"
	case TokOperator:
		return true
	}

	return true
}

// handleNilCoalescing emits the two mutants spec.md requires for
// `lhs ?? rhs`: dropping lhs and the "??" (yielding rhs), and forcing
// the optional (yielding "(lhs)!").
func (s *scanner) handleNilCoalescing(i int) {
	if i == 0 {
		return
	}

	end := s.scanExpressionEnd(i + 1)
	if end < i+1 {
		return
	}

	lhsStart := s.scanExpressionStart(i - 1)
	if lhsStart < 0 || lhsStart > i-1 {
		return
	}

	lhsFirst, lhsLast := s.toks[lhsStart], s.toks[i-1]
	rhsFirst, rhsLast := s.toks[i+1], s.toks[end]

	lhsText := s.text(lhsFirst.Offset, lhsLast.Offset+len(lhsLast.Text))
	rhsText := s.text(rhsFirst.Offset, rhsLast.Offset+len(rhsLast.Text))
	original := s.text(lhsFirst.Offset, rhsLast.Offset+len(rhsLast.Text))

	s.emit(site.NilCoalescing, lhsFirst, rhsLast, original, rhsText)
	s.emit(site.NilCoalescing, lhsFirst, rhsLast, original, "("+lhsText+")!")
}

// handleTernary only fires for a "?" confirmed to be followed, within
// the same statement, by a matching ":" at the same bracket depth — this
// disambiguates it from the optional-type marker "Int?", which is not.
func (s *scanner) handleTernary(i int) {
	colonIdx, ok := s.findTernaryColon(i)
	if !ok {
		return
	}

	end := s.scanExpressionEnd(colonIdx + 1)
	if end < colonIdx+1 {
		return
	}

	trueStart, trueEnd := s.toks[i+1], s.toks[colonIdx-1]
	falseStart, falseEnd := s.toks[colonIdx+1], s.toks[end]

	trueText := s.text(trueStart.Offset, trueEnd.Offset+len(trueEnd.Text))
	falseText := s.text(falseStart.Offset, falseEnd.Offset+len(falseEnd.Text))

	original := s.text(trueStart.Offset, falseEnd.Offset+len(falseEnd.Text))
	mutated := falseText + " : " + trueText

	s.emit(site.TernarySwap, trueStart, falseEnd, original, mutated)
}

func (s *scanner) findTernaryColon(qIdx int) (int, bool) {
	depth := 0
	start := s.toks[qIdx]

	for i := qIdx + 1; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.Kind == TokEOF {
			return 0, false
		}

		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			if depth == 0 {
				return 0, false
			}
			depth--
		case ":":
			if depth == 0 {
				return i, true
			}
		case ",":
			if depth == 0 {
				return 0, false
			}
		}

		if depth == 0 && t.Line != start.Line {
			return 0, false
		}
	}

	return 0, false
}

// scanExpressionEnd returns the index of the last token belonging to the
// expression beginning at start, terminating at a same-depth comma,
// colon, closing bracket, line change, or EOF.
func (s *scanner) scanExpressionEnd(start int) int {
	depth := 0
	last := start - 1

	for i := start; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.Kind == TokEOF {
			return last
		}

		if depth == 0 && i > start && t.Line != s.toks[start].Line {
			return last
		}

		switch t.Text {
		case "(", "[":
			depth++
		case "{":
			return last
		case ")", "]", "}":
			if depth == 0 {
				return last
			}
			depth--
		case ",", ":":
			if depth == 0 {
				return last
			}
		}

		last = i
	}

	return last
}

// scanExpressionStart returns the index of the first token belonging to
// the expression ending at end, scanning backward and terminating at a
// same-depth comma, colon, semicolon, an assignment-like operator, a
// statement-leading keyword, an unmatched opening bracket, or a line
// change.
func (s *scanner) scanExpressionStart(end int) int {
	depth := 0
	first := end + 1

	for i := end; i >= 0; i-- {
		t := s.toks[i]

		if depth == 0 && i < end && t.Line != s.toks[end].Line {
			return first
		}

		switch t.Text {
		case ")", "]":
			depth++
		case "(", "[":
			if depth == 0 {
				return first
			}
			depth--
		case "{", "}":
			return first
		case ",", ":", ";":
			if depth == 0 {
				return first
			}
		}

		if depth == 0 {
			if t.Kind == TokKeyword && isStatementLeadingKeyword(t.Text) {
				return first
			}
			if t.Kind == TokOperator && isAssignmentLikeOperator(t.Text) {
				return first
			}
		}

		first = i
	}

	return first
}

func isStatementLeadingKeyword(text string) bool {
	switch text {
	case "return", "if", "while", "guard", "let", "var", "case", "in",
		"else", "for", "switch", "func", "break", "continue", "defer", "throw":
		return true
	}

	return false
}

func isAssignmentLikeOperator(text string) bool {
	switch text {
	case "=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=":
		return true
	}

	return false
}

// handleNumber implements the integer-literal-constants family: "0"/"1"
// swap to each other tagged constant; every other decimal literal emits
// V+1 and V-1 tagged constantBoundary, skipping whichever side would
// overflow the ambient fixed-width integer width.
func (s *scanner) handleNumber(i int) {
	t := s.toks[i]
	if strings.ContainsAny(t.Text, ".xXoObB") {
		return
	}

	switch t.Text {
	case "0":
		s.emit(site.Constant, t, t, t.Text, "1")

		return
	case "1":
		s.emit(site.Constant, t, t, t.Text, "0")

		return
	}

	n, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return
	}

	if n < math.MaxInt64 {
		s.emit(site.ConstantBoundary, t, t, t.Text, strconv.FormatInt(n+1, 10))
	}
	if n > math.MinInt64 {
		s.emit(site.ConstantBoundary, t, t, t.Text, strconv.FormatInt(n-1, 10))
	}
}

func (s *scanner) handleString(i int) {
	t := s.toks[i]
	if strings.HasPrefix(t.Text, `"""`) {
		return
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(t.Text, `"`), `"`)

	if inner != "" {
		s.emit(site.StringLiteral, t, t, t.Text, `""`)
	}

	if isIdentifierLiteral(inner) {
		if other, ok := s.firstDistinctLiteral(inner); ok {
			s.emit(site.TailoredIdentifierLiteral, t, t, t.Text, `"`+other+`"`)
		}
	}
}

// firstDistinctLiteral returns the first member of the file's literal
// pool whose text differs from inner, by collection order.
func (s *scanner) firstDistinctLiteral(inner string) (string, bool) {
	for _, candidate := range s.literalPool {
		if candidate != inner {
			return candidate, true
		}
	}

	return "", false
}

func isIdentifierLiteral(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}

		return false
	}

	return true
}

func (s *scanner) handleIdent(i int) {
	t := s.toks[i]

	if swap, ok := stdlibSemanticSwaps[t.Text]; ok {
		if next := s.lookahead(i, 1); next != nil && next.Text == "(" {
			s.emit(site.StdlibSemantic, t, t, t.Text, swap)
		}

		return
	}

	if t.Text == "Task" {
		s.handleConcurrencyContext(i)

		return
	}

	s.handleVoidCallOrStatement(i)
}

func (s *scanner) handleConcurrencyContext(i int) {
	t := s.toks[i]
	dot := s.lookahead(i, 1)
	detached := s.lookahead(i, 2)

	if dot != nil && dot.Text == "." && detached != nil && detached.Text == "detached" {
		s.emit(site.ConcurrencyContext, t, *detached, "Task.detached", "Task")

		return
	}

	if brace := s.lookahead(i, 1); brace != nil && brace.Text == "{" {
		s.emit(site.ConcurrencyContext, t, t, "Task", "Task.detached")
	}
}

var voidCallNames = map[string]bool{
	"print": true, "debugPrint": true, "assert": true, "precondition": true,
	"fatalError": true, "NSLog": true, "preconditionFailure": true,
	"assertionFailure": true,
}

// handleVoidCallOrStatement recognizes a bare call expression used as a
// whole statement: `name(...)` at the start of a line, not assigned,
// returned, or thrown. Such statements are candidates for deletion.
func (s *scanner) handleVoidCallOrStatement(i int) {
	t := s.toks[i]
	next := s.lookahead(i, 1)
	if next == nil || next.Text != "(" {
		return
	}

	prev := s.lookbehind(i, 1)
	if prev != nil && prev.Line == t.Line {
		return
	}
	if prev != nil {
		switch prev.Text {
		case "return", "try", "await", "=", ".", "throw":
			return
		}
	}

	end := s.scanExpressionEnd(i)
	if end < i {
		return
	}

	exprEnd := s.toks[end]
	if after := s.lookahead(end, 1); after != nil && after.Text == "." {
		return
	}

	stmt := s.text(t.Offset, exprEnd.Offset+len(exprEnd.Text))

	op := site.StatementDeletion
	if voidCallNames[t.Text] {
		op = site.VoidCallRemoval
	}

	s.emit(op, t, exprEnd, stmt, "")
}

func (s *scanner) lookahead(i, n int) *Token {
	idx := i + n
	if idx >= len(s.toks) {
		return nil
	}

	return &s.toks[idx]
}

func (s *scanner) lookbehind(i, n int) *Token {
	idx := i - n
	if idx < 0 {
		return nil
	}

	return &s.toks[idx]
}
