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
package compiler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consensys/go-macro/pkg/macro/compiler/parser"
	"github.com/consensys/go-macro/pkg/macro/vm"
	"github.com/consensys/go-macro/pkg/util/source"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UnitExtensions identifies the files picked up as compilation units when a
// directory is built.
var UnitExtensions = []string{".ts", ".tsx", ".mts", ".js", ".jsx", ".mjs"}

// Config determines how compilation units are built.
type Config struct {
	// Loader through which macro modules are resolved and read (defaults to
	// the filesystem).
	Loader vm.Loader
	// NoCache disables reuse of evaluation results, such that every call site
	// is evaluated separately.
	NoCache bool
	// Workers bounds the number of concurrent evaluations (and units) in
	// flight.  Defaults to the number of available processors.
	Workers int
	// Timeout bounds the wall-clock time of any one evaluation.  Defaults to
	// DEFAULT_TIMEOUT, whilst a negative timeout leaves evaluation unbounded.
	Timeout time.Duration
	// MemoryLimitPages bounds the linear memory of wasm macro modules.
	MemoryLimitPages uint32
	// FailFast cancels outstanding units as soon as one fails.
	FailFast bool
	// Console receives the console output of macros (defaults to the log).
	Console vm.Console
}

// Output is the outcome of building a single compilation unit.  Bytes holds
// the emitted unit if, and only if, the build succeeded.
type Output struct {
	Filename string
	Bytes    []byte
	Failures []*Failure
	// Err is set when the build of this unit was cancelled.
	Err error
	// MacroModule is set when this unit is imported as a macro module by some
	// other unit of the same build.
	MacroModule bool
}

// Failed reports whether this unit could not be built.
func (p *Output) Failed() bool {
	return len(p.Failures) > 0 || p.Err != nil
}

// Stats summarises the work performed by a compiler.
type Stats struct {
	Units       uint64
	Failed      uint64
	CallSites   uint64
	Evaluations uint64
	CacheHits   uint64
}

func (p Stats) String() string {
	return fmt.Sprintf("%d unit(s) (%d failed), %d call site(s), %d evaluation(s), %d cache hit(s)",
		p.Units, p.Failed, p.CallSites, p.Evaluations, p.CacheHits)
}

// Compiler expands the macros of compilation units.  Evaluation results are
// shared across every unit built by the same compiler.
type Compiler struct {
	config    Config
	loader    vm.Loader
	evaluator *Evaluator
	// Resolved paths of every macro module imported by a unit built so far
	mutex  sync.Mutex
	macros map[string]bool
	// Instrumentation
	units     atomic.Uint64
	failed    atomic.Uint64
	callsites atomic.Uint64
}

// DEFAULT_TIMEOUT bounds each evaluation unless configured otherwise, such
// that a macro which does not terminate cannot stall a build.
const DEFAULT_TIMEOUT = 10 * time.Second

var errUnitFailed = errors.New("unit failed")

// NewCompiler constructs a new compiler with a given configuration.
func NewCompiler(config Config) *Compiler {
	var cache *Cache
	//
	if config.Loader == nil {
		config.Loader = vm.FileLoader{}
	}
	//
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	//
	if config.Timeout == 0 {
		config.Timeout = DEFAULT_TIMEOUT
	}
	//
	if !config.NoCache {
		cache = NewCache()
	}
	//
	vmConfig := vm.Config{Console: config.Console, MemoryLimitPages: config.MemoryLimitPages}
	//
	return &Compiler{
		config:    config,
		loader:    config.Loader,
		evaluator: NewEvaluator(config.Loader, vmConfig, config.Timeout, cache),
		macros:    make(map[string]bool),
	}
}

// Stats returns a summary of the work performed so far.
func (p *Compiler) Stats() Stats {
	return Stats{
		Units:       p.units.Load(),
		Failed:      p.failed.Load(),
		CallSites:   p.callsites.Load(),
		Evaluations: p.evaluator.Evaluations(),
		CacheHits:   p.evaluator.CacheHits(),
	}
}

// MacroModules returns the resolved paths of every macro module imported by
// the units built so far (in sorted order).
func (p *Compiler) MacroModules() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	//
	modules := make([]string, 0, len(p.macros))
	//
	for module := range p.macros {
		modules = append(modules, module)
	}
	//
	slices.Sort(modules)
	//
	return modules
}

// IsMacroModule reports whether a given file is a macro module imported by
// some unit built so far.  Macro modules exist only at build time, hence
// should not be emitted alongside the units which import them.
func (p *Compiler) IsMacroModule(filename string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	//
	return p.macros[filepath.Clean(filename)]
}

func (p *Compiler) recordMacroModules(graph *Graph) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	//
	for _, module := range graph.Modules {
		p.macros[filepath.Clean(module)] = true
	}
}

// Build a set of compilation units concurrently, returning one output for each
// (in the same order).  The failure of one unit does not affect the output of
// others unless FailFast is set, in which case outstanding units are
// cancelled.  An error is returned only if the build as a whole was cancelled.
func (p *Compiler) Build(ctx context.Context, files ...*source.File) ([]Output, error) {
	var (
		outputs = make([]Output, len(files))
		group   = new(errgroup.Group)
		gctx    = ctx
	)
	//
	if p.config.FailFast {
		group, gctx = errgroup.WithContext(ctx)
	}
	//
	group.SetLimit(p.config.Workers)
	//
	for i, file := range files {
		group.Go(func() error {
			bytes, failures, err := p.BuildUnit(gctx, file)
			outputs[i] = Output{Filename: file.Filename(), Bytes: bytes, Failures: failures, Err: err}
			//
			if p.config.FailFast && outputs[i].Failed() {
				return errUnitFailed
			}
			//
			return nil
		})
	}
	//
	_ = group.Wait()
	// Units are built concurrently, so importers are only known at the end
	for i := range outputs {
		outputs[i].MacroModule = p.IsMacroModule(outputs[i].Filename)
	}
	//
	log.Debug(p.Stats().String())
	//
	return outputs, ctx.Err()
}

// BuildUnit expands every macro call site of a given compilation unit,
// returning the emitted unit on success.  Otherwise, the failures which
// prevented it from being built are returned, and nothing is emitted.  An error
// is returned only if the build was cancelled.
func (p *Compiler) BuildUnit(ctx context.Context, srcfile *source.File) ([]byte, []*Failure, error) {
	var start = time.Now()
	//
	p.units.Add(1)
	//
	bytes, failures, err := p.buildUnit(ctx, srcfile)
	//
	if err != nil || len(failures) > 0 {
		p.failed.Add(1)
		//
		return nil, failures, err
	}
	//
	log.Debug(fmt.Sprintf("%s: built in %s", srcfile.Filename(), time.Since(start)))
	//
	return bytes, nil, nil
}

func (p *Compiler) buildUnit(ctx context.Context, srcfile *source.File) ([]byte, []*Failure, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	// Parse
	unit, errs := parser.ParseUnit(srcfile)
	if len(errs) > 0 {
		return nil, parseFailures(errs), nil
	}
	//
	log.Debug(fmt.Sprintf("%s: parsed %d statement(s), %d import(s)", srcfile.Filename(), len(unit.Statements()),
		len(unit.Imports())))
	// Classify imports and locate call sites
	graph, failures := BuildGraph(unit, p.loader)
	//
	p.recordMacroModules(graph)
	//
	if len(failures) > 0 {
		return nil, failures, nil
	}
	//
	p.callsites.Add(uint64(len(graph.CallSites)))
	// Evaluate
	failures, err := p.evaluate(ctx, graph)
	if err != nil || len(failures) > 0 {
		return nil, failures, err
	}
	// Splice
	if errs := Splice(graph); len(errs) > 0 {
		return nil, parseFailures(errs), nil
	}
	// Validate
	if failures := Validate(unit, graph, p.loader); len(failures) > 0 {
		return nil, failures, nil
	}
	//
	return unit.Emit(), nil, nil
}

// Evaluate every call site of a graph concurrently.  Every call site and
// binding reaches a terminal state, unless evaluation is cancelled.
func (p *Compiler) evaluate(ctx context.Context, graph *Graph) ([]*Failure, error) {
	var (
		group, gctx = errgroup.WithContext(ctx)
		results     = make([]Result, len(graph.CallSites))
		failures    []*Failure
	)
	//
	group.SetLimit(p.config.Workers)
	//
	for i, site := range graph.CallSites {
		site.Binding.State = EVALUATING
		site.State = EVALUATING
		//
		group.Go(func() error {
			var err error
			results[i], err = p.evaluator.Evaluate(gctx, site)
			//
			return err
		})
	}
	//
	if err := group.Wait(); err != nil {
		return nil, err
	}
	//
	for i, site := range graph.CallSites {
		if results[i].Failed() {
			site.State = FAILED
			failures = append(failures, callSiteFailure(graph, site, results[i]))
		} else {
			site.State = RESOLVED
			site.Literal = results[i].Literal
		}
	}
	//
	for _, binding := range graph.Bindings {
		binding.State = RESOLVED
		//
		for _, site := range binding.CallSites {
			if site.State == FAILED {
				binding.State = FAILED
			}
		}
	}
	//
	return failures, nil
}

// Construct the failure arising from evaluating a given call site.
func callSiteFailure(graph *Graph, site *CallSite, result Result) *Failure {
	var message string
	//
	switch result.Kind {
	case SerializationError:
		message = "result cannot be represented as a literal"
	case NonDeterministicMacroError:
		message = "arguments cannot be evaluated at compile time"
	default:
		message = "macro evaluation failed"
	}
	//
	return &Failure{
		Kind:    result.Kind,
		Module:  site.Binding.Import.Specifier,
		Export:  site.Export,
		File:    graph.Unit.SourceFile(),
		Span:    site.Span,
		Message: message,
		Cause:   result.Err,
	}
}
