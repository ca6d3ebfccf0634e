// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package vm

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrModuleNotFound signals that an import specifier could not be resolved.
var ErrModuleNotFound = errors.New("module not found")

// Extensions probed (in order) when resolving a specifier without one.
var extensions = []string{".ts", ".tsx", ".mts", ".js", ".mjs", ".wasm"}

// Loader is responsible for locating and reading macro modules.
type Loader interface {
	// Resolve a specifier appearing in a given importing module to the path
	// of the module it refers to.
	Resolve(importer string, specifier string) (string, error)
	// Load the contents of a module given its resolved path.
	Load(filename string) ([]byte, error)
}

// IsWasm determines whether a resolved module path refers to a WebAssembly
// module.
func IsWasm(filename string) bool {
	return strings.HasSuffix(filename, ".wasm")
}

// Resolve a specifier against an importer, where exists reports whether a
// candidate (slash separated) path refers to a module.
func resolve(importer string, specifier string, exists func(string) bool) (string, error) {
	var base string
	//
	switch {
	case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"), specifier == ".", specifier == "..":
		base = path.Join(path.Dir(importer), specifier)
	case path.IsAbs(specifier):
		base = path.Clean(specifier)
	default:
		return "", fmt.Errorf("%w: bare specifier '%s' is not supported", ErrModuleNotFound, specifier)
	}
	//
	candidates := []string{base}
	// Script modules are often imported by their compiled name
	if ext := path.Ext(base); ext == ".js" || ext == ".mjs" {
		stem := strings.TrimSuffix(base, ext)
		candidates = append(candidates, stem+".ts", stem+".tsx", stem+".mts")
	}
	//
	for _, ext := range extensions {
		candidates = append(candidates, base+ext)
	}
	//
	for _, ext := range extensions {
		candidates = append(candidates, base+"/index"+ext)
	}
	//
	for _, candidate := range candidates {
		if exists(candidate) {
			return candidate, nil
		}
	}
	//
	return "", fmt.Errorf("%w: cannot resolve '%s' from %s", ErrModuleNotFound, specifier, importer)
}

// FileLoader loads modules from the filesystem.
type FileLoader struct{}

// Resolve implementation for the Loader interface.
func (FileLoader) Resolve(importer string, specifier string) (string, error) {
	filename, err := resolve(filepath.ToSlash(importer), specifier, func(candidate string) bool {
		info, err := os.Stat(filepath.FromSlash(candidate))
		return err == nil && !info.IsDir()
	})
	//
	return filepath.FromSlash(filename), err
}

// Load implementation for the Loader interface.
func (FileLoader) Load(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// MemoryLoader loads modules from an in-memory map of (slash separated)
// paths to contents.
type MemoryLoader map[string][]byte

// Resolve implementation for the Loader interface.
func (p MemoryLoader) Resolve(importer string, specifier string) (string, error) {
	return resolve(importer, specifier, func(candidate string) bool {
		_, ok := p[candidate]
		return ok
	})
}

// Load implementation for the Loader interface.
func (p MemoryLoader) Load(filename string) ([]byte, error) {
	if bytes, ok := p[path.Clean(filename)]; ok {
		return bytes, nil
	}
	//
	return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, filename)
}
