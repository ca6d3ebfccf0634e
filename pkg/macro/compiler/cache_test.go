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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/consensys/go-macro/pkg/util/assert"
)

func TestCache_00(t *testing.T) {
	var (
		cache = NewCache()
		key   = Key{Module: "m.ts", Export: "f", Arguments: "1"}
		calls atomic.Int32
		hits  atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	//
	for range 32 {
		wg.Add(1)
		//
		go func() {
			defer wg.Done()
			<-start
			//
			result, hit, err := cache.Get(context.Background(), key, func() (Result, error) {
				calls.Add(1)
				return Result{Tag: "number", Value: 1.0, Literal: "1"}, nil
			})
			//
			assert.NoError(t, err)
			assert.Equal(t, "1", result.Literal)
			//
			if hit {
				hits.Add(1)
			}
		}()
	}
	//
	close(start)
	wg.Wait()
	// Exactly one evaluation, reused by everyone else
	assert.Equal(t, 1, calls.Load())
	assert.Equal(t, 31, hits.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_01(t *testing.T) {
	var (
		cache   = NewCache()
		key     = Key{Module: "m.ts", Export: "f"}
		cause   = errors.New("boom")
		calls   = 0
		failure = func() (Result, error) {
			calls++
			return Result{Kind: MacroExecutionError, Err: cause}, nil
		}
	)
	// Failures are terminal, hence cached
	result, hit, err := cache.Get(context.Background(), key, failure)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, result.Failed())
	//
	result, hit, err = cache.Get(context.Background(), key, failure)
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.ErrorIs(t, result.Err, cause)
	assert.Equal(t, 1, calls)
}

func TestCache_02(t *testing.T) {
	var (
		cache       = NewCache()
		key         = Key{Module: "m.ts", Export: "f"}
		ctx, cancel = context.WithCancel(context.Background())
	)
	// Cancelled evaluations are discarded
	cancel()
	//
	_, _, err := cache.Get(ctx, key, func() (Result, error) {
		return Result{}, ctx.Err()
	})
	//
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, cache.Len())
	//
	result, hit, err := cache.Get(context.Background(), key, func() (Result, error) {
		return Result{Literal: "2"}, nil
	})
	//
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2", result.Literal)
}

func TestCache_03(t *testing.T) {
	var (
		cache       = NewCache()
		key         = Key{Module: "m.ts", Export: "f"}
		ctx, cancel = context.WithCancel(context.Background())
		started     = make(chan struct{})
		retried     = make(chan Result)
	)
	// A waiter retries once the leader is cancelled
	go func() {
		_, _, _ = cache.Get(ctx, key, func() (Result, error) {
			close(started)
			<-ctx.Done()
			//
			return Result{}, ctx.Err()
		})
	}()
	//
	<-started
	//
	go func() {
		result, _, _ := cache.Get(context.Background(), key, func() (Result, error) {
			return Result{Literal: "3"}, nil
		})
		retried <- result
	}()
	//
	cancel()
	//
	result := <-retried
	assert.Equal(t, "3", result.Literal)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_04(t *testing.T) {
	var (
		cache       = NewCache()
		key         = Key{Module: "m.ts", Export: "f"}
		ctx, cancel = context.WithCancel(context.Background())
		started     = make(chan struct{})
		release     = make(chan struct{})
		done        = make(chan error)
	)
	// Waiters give up when cancelled, without disturbing the evaluation
	go func() {
		_, _, _ = cache.Get(context.Background(), key, func() (Result, error) {
			close(started)
			<-release
			//
			return Result{Literal: "4"}, nil
		})
	}()
	//
	<-started
	//
	go func() {
		_, _, err := cache.Get(ctx, key, nil)
		done <- err
	}()
	//
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(release)
	//
	result, hit, err := cache.Get(context.Background(), key, nil)
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "4", result.Literal)
}
