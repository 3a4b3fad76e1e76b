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

// Package packagemanifest locates the Swift Package Manager manifest
// (Package.swift) that governs a given source path, the way gomodule
// locates go.mod for a Go source tree.
package packagemanifest

import (
	"os"
	"path/filepath"

	"github.com/pproenca/mutate4swift/internal/execution"
)

const manifestName = "Package.swift"

// Package represents the package that owns a given path.
//
//	Name is the directory name of the package root (SwiftPM has no single
//	  "module name" line to read the way go.mod does; the root directory
//	  name is the idiomatic stand-in).
//	Root is the root folder of the package, the directory holding
//	  Package.swift.
//	CallingDir is the path relative to Root that the caller is operating
//	  on.
type Package struct {
	Name       string
	Root       string
	CallingDir string
}

// Init walks up from path looking for Package.swift and returns the
// owning Package. It returns a *execution.PackagePathNotFound if no
// manifest is reachable.
func Init(path string) (Package, error) {
	if path == "" {
		return Package{}, &execution.InvalidSourceFile{Reason: "path is not set"}
	}
	root := findPackageRoot(path)
	if root == "" {
		return Package{}, &execution.PackagePathNotFound{Path: path}
	}
	rel, _ := filepath.Rel(root, path)

	return Package{
		Name:       filepath.Base(root),
		Root:       root,
		CallingDir: rel,
	}, nil
}

func findPackageRoot(path string) string {
	// Inspired by how Go itself finds the module root, and by
	// internal/configuration's duplicate of this walk.
	path = filepath.Clean(path)
	for {
		if fi, err := os.Stat(filepath.Join(path, manifestName)); err == nil && !fi.IsDir() {
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
