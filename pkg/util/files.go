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
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	log "github.com/sirupsen/logrus"
)

// ExpandSourceFiles looks through a list of filenames and identifies any which
// are directories.  Those are then recursively expanded to the files they
// contain having one of the given extensions.
func ExpandSourceFiles(filenames []string, extensions ...string) ([]string, error) {
	var expandedFilenames []string
	//
	for _, f := range filenames {
		// Lookup information on the given file.
		if info, err := os.Stat(f); err != nil {
			// Something is wrong with one of the files provided, therefore
			// terminate with an error.
			return nil, err
		} else if info.IsDir() {
			// This a directory, so read its contents
			if contents, err := expandDirectory(f, extensions); err != nil {
				return nil, err
			} else {
				expandedFilenames = append(expandedFilenames, contents...)
			}
		} else {
			// This is a single file
			expandedFilenames = append(expandedFilenames, f)
		}
	}
	//
	return expandedFilenames, nil
}

// Recursively search through a given directory looking for source files.
// Declaration files (e.g. "x.d.ts") are ignored.
func expandDirectory(dirname string, extensions []string) ([]string, error) {
	var filenames []string
	// Recursively walk the given directory.
	err := filepath.Walk(dirname, func(filename string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		} else if info.IsDir() && (info.Name() == "node_modules" || info.Name() == ".git") {
			return filepath.SkipDir
		} else if info.IsDir() || !slices.Contains(extensions, filepath.Ext(filename)) {
			return nil
		}
		//
		if filepath.Ext(filepath.Base(filename[:len(filename)-len(filepath.Ext(filename))])) == ".d" {
			log.Debug(fmt.Sprintf("ignoring declaration file %s", filename))
		} else {
			filenames = append(filenames, filename)
		}
		// Continue.
		return nil
	})
	// Done
	return filenames, err
}

// WriteFileAtomic writes a file such that readers observe either its previous
// contents or the complete new contents, but never a partially written file.
// Any missing parent directories are created.
func WriteFileAtomic(filename string, bytes []byte) error {
	var dir = filepath.Dir(filename)
	//
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	//
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	// Remove temporary file in the event of failure
	defer os.Remove(tmp.Name())
	//
	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		return err
	} else if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	} else if err := tmp.Close(); err != nil {
		return err
	} else if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	//
	return os.Rename(tmp.Name(), filename)
}
