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
	"strings"
	"sync/atomic"
	"time"

	"github.com/consensys/go-macro/pkg/macro/vm"
	log "github.com/sirupsen/logrus"
)

// Evaluator evaluates macro call sites, memoizing results by module, export
// and arguments (unless caching is disabled).  An evaluator is safe for
// concurrent use.
type Evaluator struct {
	loader  vm.Loader
	config  vm.Config
	timeout time.Duration
	// Cache of results (nil when caching is disabled)
	cache *Cache
	// Instrumentation
	evaluations atomic.Uint64
	hits        atomic.Uint64
}

// NewEvaluator constructs an evaluator loading macro modules through a given
// loader.  Each evaluation is bounded by the given timeout (if positive).
func NewEvaluator(loader vm.Loader, config vm.Config, timeout time.Duration, cache *Cache) *Evaluator {
	return &Evaluator{loader: loader, config: config, timeout: timeout, cache: cache}
}

// Evaluations returns the number of times a macro export has actually been
// invoked.
func (p *Evaluator) Evaluations() uint64 {
	return p.evaluations.Load()
}

// CacheHits returns the number of call sites resolved from the cache.
func (p *Evaluator) CacheHits() uint64 {
	return p.hits.Load()
}

// Evaluate a call site, returning its (possibly cached) result.  An error is
// returned only when evaluation was cancelled, in which case the call site has
// not reached a terminal state.
func (p *Evaluator) Evaluate(ctx context.Context, site *CallSite) (Result, error) {
	var binding = site.Binding
	//
	if binding.resolution != nil {
		return Result{Kind: MacroExecutionError, Err: binding.resolution}, nil
	}
	//
	key, err := evaluationKey(binding.Module, site)
	if err != nil {
		return Result{Kind: NonDeterministicMacroError, Err: err}, nil
	}
	//
	evaluate := func() (Result, error) {
		return p.evaluate(ctx, key, site)
	}
	//
	if p.cache == nil {
		return evaluate()
	}
	//
	result, hit, err := p.cache.Get(ctx, key, evaluate)
	//
	if hit {
		p.hits.Add(1)
		log.Debug(fmt.Sprintf("cache hit for %s.%s(%s)", key.Module, key.Export, key.Arguments))
	}
	//
	return result, err
}

// Determine the key identifying a given evaluation, where arguments are
// identified by their canonical literal form.
func evaluationKey(module string, site *CallSite) (Key, error) {
	var args = make([]string, len(site.Arguments))
	//
	for i, arg := range site.Arguments {
		value, err := vm.LiteralValue(arg)
		if err != nil {
			return Key{}, err
		}
		//
		if args[i], err = Serialize(value); err != nil {
			return Key{}, err
		}
	}
	//
	return Key{Module: module, Export: site.Export, Arguments: strings.Join(args, ", ")}, nil
}

func (p *Evaluator) evaluate(ctx context.Context, key Key, site *CallSite) (result Result, err error) {
	var (
		evalCtx = ctx
		args    = make([]vm.Value, len(site.Arguments))
	)
	// Failures of the interpreter itself are attributed to the macro
	defer func() {
		if r := recover(); r != nil {
			result, err = Result{Kind: MacroExecutionError, Err: fmt.Errorf("internal error: %v", r)}, nil
		}
	}()
	//
	p.evaluations.Add(1)
	//
	log.Debug(fmt.Sprintf("evaluating %s.%s(%s)", key.Module, key.Export, key.Arguments))
	// Arguments are converted afresh for each evaluation
	for i, arg := range site.Arguments {
		if args[i], err = vm.LiteralValue(arg); err != nil {
			return Result{Kind: NonDeterministicMacroError, Err: err}, nil
		}
	}
	//
	if p.timeout > 0 {
		var cancel context.CancelFunc
		//
		evalCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	//
	value, err := vm.Evaluate(evalCtx, p.loader, key.Module, key.Export, args, p.config)
	//
	switch {
	case ctx.Err() != nil:
		// Cancelled, hence no terminal state is reached
		return Result{}, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return Result{Kind: MacroExecutionError, Err: fmt.Errorf("macro did not terminate within %s", p.timeout)}, nil
	case err != nil:
		return Result{Kind: MacroExecutionError, Err: err}, nil
	}
	//
	literal, err := serializeExactly(value)
	if err != nil {
		return Result{Kind: SerializationError, Value: value, Err: err}, nil
	}
	//
	return Result{Tag: typeTag(value), Value: value, Literal: literal}, nil
}

// Determine the tag identifying the type of a macro result.
func typeTag(value vm.Value) string {
	switch value.(type) {
	case *vm.Array:
		return "array"
	case vm.NullType:
		return "null"
	}
	//
	return vm.TypeOf(value)
}
