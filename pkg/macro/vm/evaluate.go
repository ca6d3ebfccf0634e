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
)

// Evaluate invokes an export of a macro module with the given arguments.  Each
// evaluation takes place in a fresh, isolated realm: script modules (and their
// imports) are loaded into a new script runtime, whilst wasm modules are
// instantiated in a new wasm runtime.  Nothing is shared between evaluations.
// Evaluation is interrupted when the given context is done.
func Evaluate(ctx context.Context, loader Loader, filename string, export string, args []Value,
	config Config) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	//
	if IsWasm(filename) {
		bytes, err := loader.Load(filename)
		if err != nil {
			return nil, &ModuleError{Path: filename, Cause: err}
		}
		//
		return EvaluateWasm(ctx, filename, bytes, export, args, config)
	}
	//
	realm := NewRealm(loader, config)
	//
	stop := context.AfterFunc(ctx, func() { realm.Interrupt(context.Cause(ctx)) })
	defer stop()
	//
	result, err := evaluate(realm, filename, export, args)
	// Report cancellation rather than whatever it interrupted
	if ctx.Err() != nil {
		return nil, ctx.Err()
	} else if err != nil {
		return nil, err
	} else if _, ok := result.(*Promise); ok {
		return nil, ErrAsyncResult
	}
	//
	return result, nil
}

func evaluate(realm *Realm, filename string, export string, args []Value) (Value, error) {
	module, err := realm.Import(filename)
	if err != nil {
		return nil, err
	}
	//
	return realm.Call(module, export, args)
}
