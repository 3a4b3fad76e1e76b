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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/pproenca/mutate4swift/internal/site"
)

// This is the list of the keys available in config files and as flags.
const (
	SilentKey                 = "silent"
	RunDryRunKey              = "run.dry-run"
	RunOutputKey              = "run.output"
	RunFormatKey              = "run.format"
	RunFilterKey              = "run.filter"
	RunWorkersKey             = "run.workers"
	RunSchedulerKey           = "run.scheduler"
	RunRunnerKey              = "run.runner"
	RunDiffRefKey             = "run.diff-ref"
	RunRequireCleanTreeKey    = "run.require-clean-working-tree"
	RunTimeoutCoefficientKey  = "run.timeout-coefficient"
	RunTimeoutRetriesKey      = "run.timeout-retries"
	RunBuildFirstSampleKey    = "run.build-first-sample-size"
	RunBuildFirstRatioKey     = "run.build-first-error-ratio"
	RunThresholdBuildErrorKey = "run.threshold.build-error-ratio"
	RunExcludeFilesKey        = "run.exclude-files"
	RunXcodeSchemeKey         = "run.xcode-scheme"
	RunXcodeDestinationKey    = "run.xcode-destination"
	RunAllKey                 = "run.all"
)

const (
	cfgName      = ".mutate4swift"
	envVarPrefix = "MUTATE4SWIFT"

	xdgConfigHomeKey = "XDG_CONFIG_HOME"

	windowsOs = "windows"
)

// Init initializes the viper configuration for mutate4swift.
//
// It sets the configuration file name as .mutate4swift.yaml, adds the
// passed paths as ConfigPaths, and enables AutomaticEnv with a
// MUTATE4SWIFT prefix. Environment variables take precedence over the
// configuration file and must be set in the format:
//
//	MUTATE4SWIFT_<COMMAND NAME>_<FLAG NAME>
func Init(cPaths []string) error {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()
	viper.SetConfigName(cfgName)
	viper.SetConfigType("yaml")

	if isSpecificFile(cPaths) {
		viper.SetConfigFile(cPaths[0])
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
	} else if arePathsNotSet(cPaths) {
		cPaths = defaultConfigPaths()
	}

	for _, p := range cPaths {
		viper.AddConfigPath(p)
	}

	_ = viper.ReadInConfig() // ignoring error if file not present

	return nil
}

// MutationOperatorEnabledKey returns the configuration key for a mutation
// operator. The generated key has the format
// "operators.<operator-name>.enabled", corresponding to the YAML:
//
//	operators:
//	  operator-name:
//	    enabled: [bool]
func MutationOperatorEnabledKey(op site.MutationOperator) string {
	name := strings.ToLower(op.String())

	return fmt.Sprintf("operators.%s.enabled", name)
}

func isSpecificFile(cPaths []string) bool {
	return len(cPaths) == 1 && filepath.Ext(cPaths[0]) != ""
}

func arePathsNotSet(cPaths []string) bool {
	return len(cPaths) == 0 || len(cPaths) == 1 && cPaths[0] == ""
}

func defaultConfigPaths() []string {
	result := make([]string, 0, 4)

	// First global config
	if runtime.GOOS != windowsOs {
		result = append(result, "/etc/mutate4swift")
	}

	// Then $XDG_CONFIG_HOME
	xchLocation, _ := homedir.Expand("~/.config")
	if x := os.Getenv(xdgConfigHomeKey); x != "" {
		xchLocation = x
	}
	xchLocation = filepath.Join(xchLocation, "mutate4swift", "mutate4swift")
	result = append(result, xchLocation)

	// Then $HOME
	homeLocation, err := homedir.Expand("~/.mutate4swift")
	if err != nil {
		return result
	}
	result = append(result, homeLocation)

	// Then the package root
	if root := findPackageRoot(); root != "" {
		result = append(result, root)
	}

	// Finally the current directory
	result = append(result, ".")

	return result
}

func findPackageRoot() string {
	// Duplicated from internal/packagemanifest: configuration is
	// initialised before the package manifest is located.
	path, _ := os.Getwd()
	for {
		if fi, err := os.Stat(filepath.Join(path, "Package.swift")); err == nil && !fi.IsDir() {
			return path
		}
		d := filepath.Dir(path)
		if d == path {
			break
		}
		path = d
	}

	return ""
}

var mutex sync.RWMutex

// Set offers synchronised access to Viper.
func Set[T any](k string, v T) {
	mutex.Lock()
	defer mutex.Unlock()
	viper.Set(k, v)
}

// Get offers synchronised access to Viper.
func Get[T any](k string) T {
	var r T
	mutex.RLock()
	defer mutex.RUnlock()
	r, _ = viper.Get(k).(T)

	return r
}

// Reset is used mainly for testing purposes, in order to clean up the
// Viper instance.
func Reset() {
	mutex.Lock()
	defer mutex.Unlock()
	viper.Reset()
}
