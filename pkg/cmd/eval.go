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
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/consensys/go-macro/pkg/macro/compiler"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [flags] module export [literal(s)]",
	Short: "evaluate a single macro export.",
	Long: `Evaluate an export of a macro module with the given literal arguments (e.g. '"text"',
	 '42' or '{ a: [1] }'), and print the literal which would be spliced in its place.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(EXIT_INVALID)
		}
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		var (
			loader = vm.FileLoader{}
			module = args[0]
			export = args[1]
			values = make([]vm.Value, len(args)-2)
			config = vm.Config{MemoryLimitPages: GetUint32(cmd, "memory-pages")}
		)
		// Parse arguments
		for i, arg := range args[2:] {
			value, err := compiler.Deserialize(arg)
			if err != nil {
				fmt.Printf("argument %d is not a literal: %s\n", i+1, err)
				os.Exit(EXIT_INVALID)
			}
			//
			values[i] = value
		}
		//
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		if timeout := GetDuration(cmd, "timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			//
			defer cancel()
		}
		//
		value, err := vm.Evaluate(ctx, loader, module, export, values, config)
		if err != nil {
			reportEvalError(getPainter(cmd), err)
			os.Exit(EXIT_FAILURE)
		}
		//
		text, err := compiler.Serialize(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", compiler.SerializationError, err)
			os.Exit(EXIT_FAILURE)
		}
		//
		fmt.Println(text)
	},
}

// Report a failed evaluation, highlighting the source of any syntax errors.
func reportEvalError(painter termio.Painter, err error) {
	var modErr *vm.ModuleError
	//
	if errors.As(err, &modErr) && len(modErr.Errors) > 0 {
		for i := range modErr.Errors {
			printSyntaxError(painter, &modErr.Errors[i], string(compiler.ParseError))
		}
		//
		return
	}
	//
	fmt.Fprintf(os.Stderr, "%s: %s\n", compiler.MacroExecutionError, err)
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
