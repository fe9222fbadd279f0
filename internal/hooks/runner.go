/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hooks implements the three hook-composition modes of the request
// and backend pipelines, and the typed per-stage registry that replaces a
// single heterogeneous name->callable map. Each stage has its own function
// signature; callers adapt a stage's slice into the generic shape the
// runner expects at the call site.
package hooks

import "context"

// UntilNotNull calls fns in order and returns the first result for which ok
// is true. It returns immediately on the first error. If every fn returns
// ok=false, the zero value and ok=false are returned.
func UntilNotNull[T any](ctx context.Context, fns []func(context.Context) (T, bool, error)) (T, bool, error) {
	var zero T
	for _, fn := range fns {
		value, ok, err := fn(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return value, true, nil
		}
	}
	return zero, false, nil
}

// IgnoreResults calls every fn in order; any returned results are discarded,
// but an error aborts the sequence and propagates to the caller.
func IgnoreResults(ctx context.Context, fns []func(context.Context) error) error {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CheckIfAllow calls every fn in order. If a fn returns an error matched by
// isDeny, the chain stops and (false, nil) is returned — a policy denial,
// not a fault. Any other error propagates unchanged. If every fn succeeds,
// (true, nil) is returned.
func CheckIfAllow(ctx context.Context, isDeny func(error) bool, fns []func(context.Context) error) (bool, error) {
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			if isDeny(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}
