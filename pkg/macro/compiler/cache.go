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
	"sync"

	"github.com/consensys/go-macro/pkg/macro/vm"
)

// Key identifies an evaluation: a macro module, one of its exports, and the
// canonical (i.e. serialized) form of its arguments.
type Key struct {
	Module    string
	Export    string
	Arguments string
}

// Result is the outcome of evaluating a macro: either a value together with
// the literal denoting it, or a failure.
type Result struct {
	// Type of the value produced (e.g. "string", "object")
	Tag     string
	Value   vm.Value
	Literal string
	// Kind and cause of failure (if any)
	Kind Kind
	Err  error
}

// Failed determines whether this result is a failure.
func (p Result) Failed() bool {
	return p.Err != nil
}

// Cache memoizes evaluation results such that each key is evaluated at most
// once, even when it is requested concurrently.  Later requests for a key
// block until the first completes, and then reuse its result.  An evaluation
// interrupted by cancellation never reaches a terminal state, and is discarded
// rather than cached.
type Cache struct {
	mutex   sync.Mutex
	entries map[Key]*entry
}

type entry struct {
	// Closed once the evaluation has finished (or been abandoned).
	done   chan struct{}
	result Result
	// Set when the evaluation was abandoned due to cancellation.
	abandoned bool
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Len returns the number of results held in the cache.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	//
	n := 0
	//
	for _, e := range c.entries {
		select {
		case <-e.done:
			n++
		default:
		}
	}
	//
	return n
}

// Get returns the cached result for a given key, evaluating it (at most once)
// when there is none.  Evaluation must return a context error when it was
// cancelled, in which case nothing is cached and the error is returned.  The
// boolean indicates whether the result was reused.
func (c *Cache) Get(ctx context.Context, key Key, evaluate func() (Result, error)) (Result, bool, error) {
	for {
		c.mutex.Lock()
		//
		if e, ok := c.entries[key]; ok {
			c.mutex.Unlock()
			// Await the evaluation already in progress
			select {
			case <-e.done:
			case <-ctx.Done():
				return Result{}, false, ctx.Err()
			}
			//
			if !e.abandoned {
				return e.result, true, nil
			}
			// Evaluation was abandoned, hence try again
			continue
		}
		// Responsible for evaluating this key
		e := &entry{done: make(chan struct{})}
		c.entries[key] = e
		c.mutex.Unlock()
		//
		result, err := evaluate()
		//
		c.mutex.Lock()
		//
		if err != nil {
			e.abandoned = true
			delete(c.entries, key)
		} else {
			e.result = result
		}
		//
		close(e.done)
		c.mutex.Unlock()
		//
		return result, false, err
	}
}
