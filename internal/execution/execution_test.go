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

package execution_test

import (
	"errors"
	"testing"

	"github.com/pproenca/mutate4swift/internal/execution"
)

func TestExitErr(t *testing.T) {
	testCases := []struct {
		name         string
		wantExitMsg  string
		errorType    execution.ErrorType
		wantExitCode int
	}{
		{
			name:         "working-tree-dirty",
			errorType:    execution.WorkingTreeDirtyExit,
			wantExitMsg:  "working tree is not clean",
			wantExitCode: 10,
		},
		{
			name:         "build-error-ratio-exceeded",
			errorType:    execution.BuildErrorRatioExceededExit,
			wantExitMsg:  "build-error ratio exceeds the configured limit",
			wantExitCode: 11,
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := execution.NewExitErr(tc.errorType)

			exitCode := err.ExitCode()
			exitMessage := err.Error()

			if exitCode != tc.wantExitCode {
				t.Errorf("want %d, got %d", tc.wantExitCode, exitCode)
			}
			if exitMessage != tc.wantExitMsg {
				t.Errorf("want %q, got %q", tc.wantExitMsg, exitMessage)
			}
		})
	}
}

func TestErrorTypes_implementError(t *testing.T) {
	var errs []error
	errs = append(errs,
		&execution.SourceFileNotFound{Path: "a.swift"},
		&execution.PackagePathNotFound{Path: "/repo"},
		execution.ErrBaselineTestsFailed,
		&execution.NoTestsExecuted{Filter: "WidgetTests"},
		&execution.BackupRestoreFailed{Path: "a.swift", Cause: errors.New("perm denied")},
		execution.ErrCoverageDataUnavailable,
		&execution.InvalidSourceFile{Reason: "outside package root"},
		&execution.WorkingTreeDirty{Path: "/repo"},
		&execution.BuildErrorRatioExceeded{Actual: 0.5, Limit: 0.2},
		&execution.IOFailure{Cause: errors.New("disk full")},
	)

	for _, err := range errs {
		if err.Error() == "" {
			t.Errorf("expected a non-empty message for %T", err)
		}
	}
}

func TestBackupRestoreFailed_unwraps(t *testing.T) {
	cause := errors.New("perm denied")
	err := &execution.BackupRestoreFailed{Path: "a.swift", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIOFailure_unwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := &execution.IOFailure{Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}
