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

/*
mutate4swift is a mutation testing tool for Swift packages. It seeds small
defects ("mutants") into a package's source, reruns the test suite, and
reports any mutant the tests failed to catch.

Usage

To mutate a single source file, from the package root execute:

	$ mutate4swift run Sources/Widget/Widget.swift

To mutate every file under Sources/, pass --all:

	$ mutate4swift run --all

To restrict a run to lines changed since a git ref:

	$ mutate4swift run --diff-ref=main Sources/Widget/Widget.swift

mutate4swift reports each mutant as:
  - KILLED: at least one test failed against the mutant.
  - SURVIVED: the test suite passed despite the mutant.
  - TIMED OUT: the test run exceeded the per-mutant timeout.
  - BUILD ERROR: the mutant made the package fail to build.
  - SKIPPED: the test run against the mutant executed zero tests. Sites
    outside the current scope (e.g. not on a changed line, when --diff-ref
    is set) are not run and not reported.

Configuration

mutate4swift uses Viper (https://github.com/spf13/viper) for configuration.
Options can be passed, in order of precedence:

  - specific command flags
  - environment variables
  - configuration file

The environment variables must be set with the following syntax:

	MUTATE4SWIFT_<COMMAND NAME>_<FLAG NAME>

in which every dash in the option name must be replaced with an underscore.

Example:

	$ MUTATE4SWIFT_RUN_WORKERS=4 mutate4swift run --all

The configuration file must be named .mutate4swift.yaml and can be placed in
one of the following folders, searched in this order (the first file found
is used):

  - /etc/mutate4swift
  - $XDG_CONFIG_HOME/mutate4swift/mutate4swift
  - $HOME/.mutate4swift
  - the package root
  - the current folder
*/
package mutate4swift
