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
	"path"
	"strings"

	"github.com/consensys/go-macro/pkg/macro/compiler/ast"
	"github.com/consensys/go-macro/pkg/util/source"
	"github.com/dop251/goja"
	log "github.com/sirupsen/logrus"
)

// MAX_CALL_DEPTH bounds the depth of nested function calls within a realm.
const MAX_CALL_DEPTH = 4096

// ErrNoSuchExport signals that a macro module lacks the export being invoked.
var ErrNoSuchExport = errors.New("no such export")

// ErrAsyncResult signals that a macro returned a promise rather than a value.
var ErrAsyncResult = errors.New("macro returned a promise (async macros are not supported)")

// Globals removed from every realm, since their results differ between
// evaluations.
var nondeterministic = []string{"Date", "WeakRef", "FinalizationRegistry"}

// Console receives output written by macros through the console global.
// Such output is a compile-time effect only.
type Console interface {
	// Print a message at a given level ("log", "info", "warn", "error" or
	// "debug") on behalf of a given module.
	Print(level string, module string, message string)
}

// LogConsole writes macro console output to the build log.
type LogConsole struct{}

// Print implementation for the Console interface.
func (LogConsole) Print(level string, module string, message string) {
	entry := log.WithField("macro", module)
	//
	switch level {
	case "error":
		entry.Error(message)
	case "warn":
		entry.Warn(message)
	case "debug":
		entry.Debug(message)
	default:
		entry.Info(message)
	}
}

// Config determines the resources available to an evaluation.
type Config struct {
	// Console receiving output from macros (LogConsole if nil).
	Console Console
	// Maximum number of 64KiB memory pages available to wasm macros (0 means
	// the runtime's default).
	MemoryLimitPages uint32
}

// ModuleError signals that a macro module could not be loaded, either
// because it could not be found or because it is malformed.
type ModuleError struct {
	// Path (or specifier) of the module in question.
	Path string
	// Syntax errors arising from parsing the module (if any).
	Errors []source.SyntaxError
	// Underlying cause (if any).
	Cause error
}

func (e *ModuleError) Error() string {
	switch {
	case len(e.Errors) > 0:
		return e.Errors[0].Error()
	case e.Cause != nil:
		return fmt.Sprintf("cannot load module %s: %s", e.Path, e.Cause.Error())
	}
	//
	return fmt.Sprintf("cannot load module %s", e.Path)
}

func (e *ModuleError) Unwrap() error {
	return e.Cause
}

// Module is an instance of a macro module within a realm, whose top-level
// code has been executed.
type Module struct {
	Path string
	// CommonJS module object, whose "exports" holds the module's exports.
	object *goja.Object
}

func (m *Module) exports() *goja.Object {
	exports, _ := m.object.Get("exports").(*goja.Object)
	return exports
}

// Lookup an exported function.  Default imports of modules which are not ES
// modules refer to the module's exports as a whole.
func (m *Module) export(name string) (goja.Callable, error) {
	var (
		exports = m.exports()
		value   goja.Value
	)
	//
	if exports != nil {
		value = exports.Get(name)
		//
		if value == nil && name == ast.DEFAULT_EXPORT && exports.Get("__esModule") == nil {
			value = exports
		}
	}
	//
	if value == nil {
		return nil, fmt.Errorf("%w: module %s does not export '%s'", ErrNoSuchExport, m.Path, name)
	} else if fn, ok := goja.AssertFunction(value); ok {
		return fn, nil
	}
	//
	return nil, &Throw{Value: NewError("TypeError", fmt.Sprintf("export '%s' of %s is not a function", name, m.Path))}
}

// Realm is an isolated evaluation context, backed by its own script runtime.
// Modules loaded into a realm share its globals and module registry, but
// nothing is shared between realms.  A realm is not safe for concurrent use,
// except for Interrupt.
type Realm struct {
	rt      *goja.Runtime
	loader  Loader
	config  Config
	modules map[string]*Module
	// Object.prototype, which identifies plain objects
	objectProto *goja.Object
}

// NewRealm constructs a fresh realm with its own globals, which loads modules
// through a given loader.
func NewRealm(loader Loader, config Config) *Realm {
	var rt = goja.New()
	//
	if config.Console == nil {
		config.Console = LogConsole{}
	}
	//
	rt.SetMaxCallStackSize(MAX_CALL_DEPTH)
	//
	global := rt.GlobalObject()
	for _, name := range nondeterministic {
		_ = global.Delete(name)
	}
	//
	if math, ok := global.Get("Math").(*goja.Object); ok {
		_ = math.Delete("random")
	}
	//
	object, _ := global.Get("Object").(*goja.Object)
	proto, _ := object.Get("prototype").(*goja.Object)
	//
	return &Realm{rt: rt, loader: loader, config: config, modules: make(map[string]*Module), objectProto: proto}
}

// Interrupt any script running in this realm, such that it fails with the
// given cause.  This can be called from any goroutine.
func (r *Realm) Interrupt(cause error) {
	r.rt.Interrupt(cause)
}

// Import loads the module at a given (resolved) path into this realm,
// executing its top-level code the first time it is imported.
func (r *Realm) Import(filename string) (*Module, error) {
	module, err := r.load(filename)
	if err != nil {
		return nil, r.failed(err)
	}
	//
	return module, nil
}

// Load a module, returning any error raised by the runtime as is.
func (r *Realm) load(filename string) (*Module, error) {
	if m, ok := r.modules[filename]; ok {
		// Cyclic imports observe a partially initialised module
		return m, nil
	} else if IsWasm(filename) {
		return nil, &ModuleError{Path: filename, Cause: errors.New("wasm modules cannot be imported by script modules")}
	}
	//
	bytes, err := r.loader.Load(filename)
	if err != nil {
		return nil, &ModuleError{Path: filename, Cause: err}
	}
	//
	program, err := compileModule(source.NewSourceFile(filename, bytes))
	if err != nil {
		return nil, err
	}
	//
	log.Debug(fmt.Sprintf("loading macro module %s", filename))
	//
	wrapper, err := r.rt.RunProgram(program)
	if err != nil {
		return nil, err
	}
	//
	init, _ := goja.AssertFunction(wrapper)
	module := &Module{Path: filename, object: r.rt.NewObject()}
	exports := r.rt.NewObject()
	_ = module.object.Set("exports", exports)
	//
	r.modules[filename] = module
	//
	_, err = init(exports, exports, r.rt.ToValue(r.require(filename)), module.object, r.console(filename))
	if err != nil {
		delete(r.modules, filename)
		//
		return nil, err
	}
	//
	return module, nil
}

// Call an exported function of a module with the given arguments.
func (r *Realm) Call(module *Module, export string, args []Value) (Value, error) {
	var result Value
	//
	err := r.guard(func() error {
		fn, err := module.export(export)
		if err != nil {
			return err
		}
		//
		params := make([]goja.Value, len(args))
		for i, arg := range args {
			params[i] = r.toScript(arg)
		}
		//
		value, err := fn(goja.Undefined(), params...)
		if err != nil {
			return err
		}
		//
		result = r.fromScript(value)
		//
		return nil
	})
	//
	if err != nil {
		return nil, r.failed(err)
	}
	//
	return result, nil
}

// Construct the require function of a given module, through which it imports
// other modules.
func (r *Realm) require(importer string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var (
			specifier   = call.Argument(0).String()
			interrupted *goja.InterruptedError
			overflow    *goja.StackOverflowError
			exception   *goja.Exception
		)
		//
		filename, err := r.loader.Resolve(importer, specifier)
		if err != nil {
			panic(r.rt.NewGoError(&ModuleError{Path: specifier, Cause: err}))
		}
		//
		module, err := r.load(filename)
		// Uncatchable exceptions must remain so, and exceptions propagate as
		// they are.
		switch {
		case errors.As(err, &interrupted), errors.As(err, &overflow):
			panic(err)
		case errors.As(err, &exception):
			panic(exception)
		case err != nil:
			panic(r.rt.NewGoError(err))
		}
		//
		return module.object.Get("exports")
	}
}

// Construct the console object of a given module.
func (r *Realm) console(filename string) *goja.Object {
	var (
		console = r.rt.NewObject()
		name    = strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	)
	//
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			//
			for i, arg := range call.Arguments {
				parts[i] = Describe(r.fromScript(arg))
			}
			//
			r.config.Console.Print(level, name, strings.Join(parts, " "))
			//
			return goja.Undefined()
		})
	}
	//
	return console
}

// Run a function which may raise script exceptions from outside of script
// code (e.g. by reading a getter), returning them as errors.
func (r *Realm) guard(f func() error) (err error) {
	defer func() {
		if x := recover(); x != nil {
			// Uncatchable exceptions (e.g. interrupts) pass through Try
			e, ok := x.(error)
			if !ok {
				panic(x)
			}
			//
			err = e
		}
	}()
	//
	if ex := r.rt.Try(func() { err = f() }); ex != nil {
		return ex
	}
	//
	return err
}

// Translate an error raised by the runtime into the failure it represents.
func (r *Realm) failed(err error) error {
	var (
		interrupted *goja.InterruptedError
		overflow    *goja.StackOverflowError
		module      *ModuleError
		exception   *goja.Exception
	)
	//
	switch {
	case errors.As(err, &interrupted):
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	case errors.As(err, &overflow):
		return &Throw{Value: NewError("RangeError", "Maximum call stack size exceeded")}
	case errors.As(err, &module):
		return module
	case errors.As(err, &exception):
		var value Value
		//
		if r.guard(func() error { value = r.fromScript(exception.Value()); return nil }) != nil {
			value = &Opaque{Type: "object", Text: "<unprintable exception>"}
		}
		//
		return &Throw{Value: value}
	}
	//
	return err
}
