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

package configuration

import (
	"github.com/pproenca/mutate4swift/internal/site"
)

var operatorEnabled = map[site.MutationOperator]bool{
	site.Arithmetic:                true,
	site.Comparison:                true,
	site.Logical:                   true,
	site.Bitwise:                   true,
	site.CompoundAssignment:        true,
	site.Range:                     true,
	site.Boolean:                   true,
	site.Constant:                  true,
	site.ConstantBoundary:          true,
	site.UnaryRemoval:              true,
	site.UnarySign:                 true,
	site.ReturnValue:               true,
	site.TypedReturnDefault:        true,
	site.GuardNegate:               true,
	site.ConditionNegate:           true,
	site.TryMutation:               true,
	site.CastStrength:              true,
	site.OptionalChaining:          true,
	site.TernarySwap:               true,
	site.StringLiteral:             true,
	site.NilCoalescing:             true,
	site.StdlibSemantic:            true,
	site.ConcurrencyContext:        false,
	site.TailoredIdentifierLiteral: false,
	site.StatementDeletion:         true,
	site.VoidCallRemoval:           true,
	site.DeferRemoval:              true,
	site.LoopControl:               true,
}

// IsDefaultEnabled returns the default enabled/disabled state of the
// operator. It gets the state from the table above, which must be kept up
// to date when adding new operators.
func IsDefaultEnabled(op site.MutationOperator) bool {
	return operatorEnabled[op]
}
