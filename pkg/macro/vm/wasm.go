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
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	log "github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Name of the host module through which wasm macros can write to the console.
const wasmHostModule = "env"

// EvaluateWasm instantiates a WebAssembly macro module within a fresh runtime,
// and invokes one of its exported functions.  Numeric (and boolean) arguments
// are mapped onto the function's parameter types.  A single numeric result
// becomes a number, whilst a pair of i32 results is read as a (pointer,
// length) string from the module's exported memory.
func EvaluateWasm(ctx context.Context, filename string, bytes []byte, export string, args []Value,
	config Config) (Value, error) {
	var (
		console = config.Console
		name    = strings.TrimSuffix(path.Base(filename), ".wasm")
	)
	//
	if console == nil {
		console = LogConsole{}
	}
	//
	runtimeConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if config.MemoryLimitPages > 0 {
		runtimeConfig = runtimeConfig.WithMemoryLimitPages(config.MemoryLimitPages)
	}
	//
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(context.WithoutCancel(ctx))
	//
	compiled, err := runtime.CompileModule(ctx, bytes)
	if err != nil {
		return nil, &ModuleError{Path: filename, Cause: err}
	}
	//
	_, err = runtime.NewHostModuleBuilder(wasmHostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
			//
			if text, ok := mod.Memory().Read(ptr, length); ok {
				console.Print("log", name, string(text))
			}
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{}).
		Export("console_log").
		Instantiate(ctx)
	if err != nil {
		return nil, &ModuleError{Path: filename, Cause: err}
	}
	//
	module, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, wasmFailure(ctx, filename, err)
	}
	//
	fn := module.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("%w: wasm module %s has no exported function '%s'", ErrNoSuchExport, filename, export)
	}
	//
	params, err := encodeWasmArgs(fn.Definition().ParamTypes(), args)
	if err != nil {
		return nil, err
	}
	//
	log.Debug(fmt.Sprintf("invoking wasm export %s.%s", name, export))
	//
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, wasmFailure(ctx, filename, err)
	}
	//
	return decodeWasmResults(module, fn.Definition().ResultTypes(), results)
}

// WasmTrap signals that a wasm macro trapped (e.g. reached an unreachable
// instruction) during execution.
type WasmTrap struct {
	Path  string
	Cause error
}

func (e *WasmTrap) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Cause.Error())
}

func (e *WasmTrap) Unwrap() error {
	return e.Cause
}

// Cancellation takes precedence over the error reported by the runtime, which
// merely reflects the module being closed.
func wasmFailure(ctx context.Context, filename string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	//
	return &WasmTrap{Path: filename, Cause: err}
}

func encodeWasmArgs(types []api.ValueType, args []Value) ([]uint64, error) {
	if len(types) != len(args) {
		return nil, fmt.Errorf("wasm export expects %d argument(s), got %d", len(types), len(args))
	}
	//
	params := make([]uint64, len(args))
	//
	for i, a := range args {
		var n float64
		//
		switch a := a.(type) {
		case float64:
			n = a
		case bool:
			if a {
				n = 1
			}
		default:
			return nil, fmt.Errorf("argument %d: wasm macros accept only numbers and booleans (got %s)", i+1,
				TypeOf(a))
		}
		//
		switch types[i] {
		case api.ValueTypeI32:
			params[i] = api.EncodeI32(toInt32(n))
		case api.ValueTypeI64:
			if n != math.Trunc(n) || math.Abs(n) > 9007199254740991 {
				return nil, fmt.Errorf("argument %d: %s is not a safe integer", i+1, parser.FormatNumber(n))
			}
			//
			params[i] = api.EncodeI64(int64(n))
		case api.ValueTypeF32:
			params[i] = api.EncodeF32(float32(n))
		case api.ValueTypeF64:
			params[i] = api.EncodeF64(n)
		default:
			return nil, fmt.Errorf("argument %d: unsupported parameter type %s", i+1, api.ValueTypeName(types[i]))
		}
	}
	//
	return params, nil
}

// Convert a number to a signed 32-bit integer, wrapping modulo 2^32.
func toInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	//
	return int32(uint32(int64(math.Mod(math.Trunc(n), 4294967296))))
}

func decodeWasmResults(module api.Module, types []api.ValueType, results []uint64) (Value, error) {
	switch {
	case len(types) == 0:
		return Undefined, nil
	case len(types) == 1:
		switch types[0] {
		case api.ValueTypeI32:
			return float64(api.DecodeI32(results[0])), nil
		case api.ValueTypeI64:
			return float64(int64(results[0])), nil
		case api.ValueTypeF32:
			return float64(api.DecodeF32(results[0])), nil
		case api.ValueTypeF64:
			return api.DecodeF64(results[0]), nil
		}
	case len(types) == 2 && types[0] == api.ValueTypeI32 && types[1] == api.ValueTypeI32:
		if module.Memory() == nil {
			return nil, errors.New("wasm export returns a string but module exports no memory")
		}
		//
		bytes, ok := module.Memory().Read(api.DecodeU32(results[0]), api.DecodeU32(results[1]))
		if !ok {
			return nil, errors.New("wasm string result lies outside of memory")
		} else if !utf8.Valid(bytes) {
			return nil, errors.New("wasm string result is not valid UTF-8")
		}
		//
		return string(bytes), nil
	}
	//
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	//
	return nil, fmt.Errorf("unsupported wasm result type (%s)", strings.Join(names, ", "))
}
