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
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/consensys/go-macro/pkg/macro/compiler"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util"
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/consensys/go-macro/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file(s)|dir(s)",
	Short: "expand the macros of one or more compilation units.",
	Long: `Evaluate every macro call site of the given compilation units at build time, splicing
	 the resulting literals into the output and removing the macro imports.  Units which fail are
	 not written, and the build terminates with a non-zero exit code.  Macro modules imported by
	 other units are build-time only, and are never written.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(EXIT_INVALID)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		outdir := GetString(cmd, "outdir")
		root := GetString(cmd, "root")
		painter := getPainter(cmd)
		config := compiler.Config{
			Loader:           vm.FileLoader{},
			NoCache:          GetFlag(cmd, "no-cache"),
			Workers:          GetInt(cmd, "workers"),
			Timeout:          GetDuration(cmd, "timeout"),
			MemoryLimitPages: GetUint32(cmd, "memory-pages"),
			FailFast:         GetFlag(cmd, "fail-fast"),
		}
		// Read compilation units
		files := readUnits(args)
		// Build them, stopping early on interrupt
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		stats := util.NewPerfStats()
		macroc := compiler.NewCompiler(config)
		outputs, err := macroc.Build(ctx, files...)
		//
		stats.Log("Macro expansion")
		log.Debug(macroc.Stats().String())
		// Report outcome
		if ok := writeOutputs(painter, outputs, outdir, root); err != nil {
			fmt.Fprintf(os.Stderr, "build cancelled: %s\n", err)
			os.Exit(EXIT_CANCELLED)
		} else if !ok {
			os.Exit(EXIT_FAILURE)
		}
	},
}

// Determine how failures should be coloured.
func getPainter(cmd *cobra.Command) termio.Painter {
	enabled, err := termio.ColourEnabled(GetString(cmd, "color"), os.Stderr)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}
	//
	return termio.NewPainter(enabled)
}

// Read all compilation units given on the command line, expanding directories.
func readUnits(args []string) []*source.File {
	filenames, err := util.ExpandSourceFiles(args, compiler.UnitExtensions...)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}
	//
	srcfiles, err := source.ReadFiles(filenames...)
	if err != nil {
		fmt.Println(err)
		os.Exit(EXIT_INVALID)
	}
	//
	files := make([]*source.File, len(srcfiles))
	//
	for i := range srcfiles {
		files[i] = &srcfiles[i]
	}
	//
	return files
}

// Write out every unit which was built successfully, and report the failures
// of those which were not.  This returns true if every unit was built.
func writeOutputs(painter termio.Painter, outputs []compiler.Output, outdir string, root string) bool {
	var ok = true
	//
	for _, output := range outputs {
		switch {
		case output.MacroModule:
			log.Debug(fmt.Sprintf("%s: skipping macro module", output.Filename))
		case output.Err != nil:
			fmt.Fprintf(os.Stderr, "%s: not built (%s)\n", output.Filename, output.Err)
			ok = false
		case output.Failed():
			for _, f := range output.Failures {
				printFailure(painter, f)
			}
			//
			ok = false
		case outdir == "":
			os.Stdout.Write(output.Bytes)
		default:
			if err := writeOutput(output, outdir, root); err != nil {
				fmt.Fprintln(os.Stderr, err)
				ok = false
			}
		}
	}
	//
	return ok
}

// Write a built unit into the output directory, at the same position relative
// to the output directory as the unit has relative to the root.
func writeOutput(output compiler.Output, outdir string, root string) error {
	rel, err := filepath.Rel(root, output.Filename)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s: not within root directory %s", output.Filename, root)
	}
	//
	target := filepath.Join(outdir, rel)
	//
	log.Debug(fmt.Sprintf("writing %s", target))
	//
	return util.WriteFileAtomic(target, output.Bytes)
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringP("outdir", "o", "", "write output units into this directory (rather than stdout)")
	buildCmd.Flags().String("root", ".", "directory against which output paths are determined")
	buildCmd.Flags().Bool("no-cache", false, "evaluate every call site, rather than reusing equivalent results")
	buildCmd.Flags().IntP("workers", "j", 0, "number of concurrent evaluations (0 means one per processor)")
	buildCmd.Flags().Bool("fail-fast", false, "stop building remaining units as soon as one fails")
}
