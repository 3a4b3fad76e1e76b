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

package cmd

import (
	"context"
	"runtime"
	"strconv"
	"testing"

	"github.com/pproenca/mutate4swift/internal/configuration"
	"github.com/pproenca/mutate4swift/internal/site"
)

func TestRun(t *testing.T) {
	c, err := newRunCmd(context.TODO())
	if err != nil {
		t.Fatal("newRunCmd should not fail")
	}
	cmd := c.cmd

	if cmd.Name() != commandName {
		t.Errorf("expected %q, got %q", commandName, cmd.Name())
	}

	flags := cmd.Flags()

	testCases := []struct {
		name      string
		shorthand string
		flagType  string
		defValue  string
	}{
		{name: paramAll, shorthand: "a", flagType: "bool", defValue: "false"},
		{name: paramFilter, flagType: "string", defValue: ""},
		{name: paramWorkers, shorthand: "w", flagType: "int", defValue: strconv.Itoa(runtime.NumCPU())},
		{name: paramScheduler, flagType: "string", defValue: "dynamic"},
		{name: paramRunner, flagType: "string", defValue: runnerSwiftPM},
		{name: paramRequireCleanTree, flagType: "bool", defValue: "false"},
		{name: paramOutput, shorthand: "o", flagType: "string", defValue: ""},
		{name: paramFormat, flagType: "string", defValue: "text"},
		{name: paramTimeoutRetries, flagType: "int", defValue: "0"},
		{name: paramBuildFirstSampleSize, flagType: "int", defValue: "1"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := flags.Lookup(tc.name)
			if f == nil {
				t.Fatalf("expected flag %q to be registered", tc.name)
			}
			if tc.shorthand != "" && f.Shorthand != tc.shorthand {
				t.Errorf("expected %q to have shorthand %q, got %q", tc.name, tc.shorthand, f.Shorthand)
			}
			if f.Value.Type() != tc.flagType {
				t.Errorf("expected %q to be type %q, got %q", tc.name, tc.flagType, f.Value.Type())
			}
			if f.DefValue != tc.defValue {
				t.Errorf("expected %q to have default value %q, got %q", tc.name, tc.defValue, f.DefValue)
			}
		})
	}
}

func TestBuildTestRunner_xcodebuildRequiresSchemeAndDestination(t *testing.T) {
	configuration.Reset()
	defer configuration.Reset()

	configuration.Set(configuration.RunRunnerKey, runnerXcodebuild)

	if _, err := buildTestRunner(); err == nil {
		t.Fatal("expected an error when scheme/destination are unset")
	}
}

func TestSurvivors_countsAcrossFiles(t *testing.T) {
	rep := site.RepositoryReport{
		FileReports: []site.MutationReport{
			{Results: []site.MutationResult{{Outcome: site.Survived}, {Outcome: site.Killed}}},
			{Results: []site.MutationResult{{Outcome: site.Survived}}},
		},
	}

	if got := survivors(rep); got != 2 {
		t.Errorf("survivors() = %d, want 2", got)
	}
}
