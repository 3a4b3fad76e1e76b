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

package configuration_test

import (
	"testing"

	"github.com/pproenca/mutate4swift/internal/configuration"
	"github.com/pproenca/mutate4swift/internal/site"
)

func TestOperatorDefaultStatus(t *testing.T) {
	t.Parallel()
	type testCase struct {
		operator site.MutationOperator
		expected bool
	}
	testCases := []testCase{
		{operator: site.Arithmetic, expected: true},
		{operator: site.Comparison, expected: true},
		{operator: site.Logical, expected: true},
		{operator: site.Bitwise, expected: true},
		{operator: site.CompoundAssignment, expected: true},
		{operator: site.Range, expected: true},
		{operator: site.Boolean, expected: true},
		{operator: site.Constant, expected: true},
		{operator: site.ConstantBoundary, expected: true},
		{operator: site.UnaryRemoval, expected: true},
		{operator: site.UnarySign, expected: true},
		{operator: site.ReturnValue, expected: true},
		{operator: site.TypedReturnDefault, expected: true},
		{operator: site.GuardNegate, expected: true},
		{operator: site.ConditionNegate, expected: true},
		{operator: site.TryMutation, expected: true},
		{operator: site.CastStrength, expected: true},
		{operator: site.OptionalChaining, expected: true},
		{operator: site.TernarySwap, expected: true},
		{operator: site.StringLiteral, expected: true},
		{operator: site.NilCoalescing, expected: true},
		{operator: site.StdlibSemantic, expected: true},
		{operator: site.ConcurrencyContext, expected: false},
		{operator: site.TailoredIdentifierLiteral, expected: false},
		{operator: site.StatementDeletion, expected: true},
		{operator: site.VoidCallRemoval, expected: true},
		{operator: site.DeferRemoval, expected: true},
		{operator: site.LoopControl, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.operator.String(), func(t *testing.T) {
			t.Parallel()
			got := configuration.IsDefaultEnabled(tc.operator)
			if got != tc.expected {
				t.Errorf("expected %s to be %q, got %q", tc.operator, enabled(tc.expected), enabled(got))
			}
		})
	}

	t.Run("all operators are tested for default", func(t *testing.T) {
		contains := func(testedOps []testCase, op site.MutationOperator) bool {
			for _, c := range testedOps {
				if op == c.operator {
					return true
				}
			}

			return false
		}

		for _, op := range site.Operators {
			if contains(testCases, op) {
				continue
			}

			t.Errorf("Operators contains %q which is not tested for default", op)
		}
	})
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}

	return "disabled"
}
