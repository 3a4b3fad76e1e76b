/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package site holds the data model shared by every other package: the
// mutation operator catalog, a discovered MutationSite, the outcome of
// running one mutant, and the aggregate report shapes derived from them.
package site

// MutationOperator identifies the mutation family a MutationSite belongs
// to. The set is closed: every family the discoverer can produce has a
// named member here.
type MutationOperator int

// The complete operator catalog.
const (
	Arithmetic MutationOperator = iota
	Comparison
	Logical
	Bitwise
	CompoundAssignment
	Range
	Boolean
	Constant
	ConstantBoundary
	UnaryRemoval
	UnarySign
	ReturnValue
	TypedReturnDefault
	GuardNegate
	ConditionNegate
	TryMutation
	CastStrength
	OptionalChaining
	TernarySwap
	StringLiteral
	NilCoalescing
	StdlibSemantic
	ConcurrencyContext
	TailoredIdentifierLiteral
	StatementDeletion
	VoidCallRemoval
	DeferRemoval
	LoopControl
)

// Operators lists every MutationOperator in enumeration order, the order
// used to break ties among sites discovered at the same position.
var Operators = []MutationOperator{
	Arithmetic, Comparison, Logical, Bitwise, CompoundAssignment, Range,
	Boolean, Constant, ConstantBoundary, UnaryRemoval, UnarySign,
	ReturnValue, TypedReturnDefault, GuardNegate, ConditionNegate,
	TryMutation, CastStrength, OptionalChaining, TernarySwap,
	StringLiteral, NilCoalescing, StdlibSemantic, ConcurrencyContext,
	TailoredIdentifierLiteral, StatementDeletion, VoidCallRemoval,
	DeferRemoval, LoopControl,
}

var operatorNames = [...]string{
	"arithmetic", "comparison", "logical", "bitwise", "compoundAssignment",
	"range", "boolean", "constant", "constantBoundary", "unaryRemoval",
	"unarySign", "returnValue", "typedReturnDefault", "guardNegate",
	"conditionNegate", "tryMutation", "castStrength", "optionalChaining",
	"ternarySwap", "stringLiteral", "nilCoalescing", "stdlibSemantic",
	"concurrencyContext", "tailoredIdentifierLiteral", "statementDeletion",
	"voidCallRemoval", "deferRemoval", "loopControl",
}

// String returns the normative JSON-compatible name of the operator.
func (o MutationOperator) String() string {
	if int(o) < 0 || int(o) >= len(operatorNames) {
		return "unknown"
	}
	return operatorNames[o]
}

// MarshalText implements encoding.TextMarshaler so MutationOperator
// serializes as its normative name rather than an integer.
func (o MutationOperator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
