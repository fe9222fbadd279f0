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

// Package aggregate implements AggregationBackend, grounded on
// check_backend.py's AggregationBackend: it fans a single logical
// CheckBackend out across several concrete ones. Create routes to exactly
// one backend by a service_index picked out of the template args; listing
// concatenates every backend's results; remove and run fan out to all
// backends concurrently and reduce by the same successes/failures rule the
// original encodes in _process_results.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/resource-health/check-manager/internal/checkbackend"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

// Backend fans out across member backends in order.
type Backend struct {
	backends []checkbackend.CheckBackend
}

// New wraps backends in index order; CreateCheck's default service_index is
// 0, i.e. the first backend.
func New(backends []checkbackend.CheckBackend) *Backend {
	return &Backend{backends: backends}
}

// Close closes every member backend concurrently and joins their errors.
func (b *Backend) Close() error {
	errs := make([]error, len(b.backends))
	var wg sync.WaitGroup
	for i, backend := range b.backends {
		wg.Add(1)
		go func(i int, backend checkbackend.CheckBackend) {
			defer wg.Done()
			errs[i] = backend.Close()
		}(i, backend)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (b *Backend) GetCheckTemplates(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error] {
	return func(yield func(checktypes.CheckTemplate, error) bool) {
		for _, backend := range b.backends {
			cont := true
			backend.GetCheckTemplates(ctx, auth, ids)(func(t checktypes.CheckTemplate, err error) bool {
				cont = yield(t, err)
				return cont
			})
			if !cont {
				return
			}
		}
	}
}

// serviceIndex pops "service_index" out of template_args, defaulting to 0,
// mirroring the original's TypeAdapter(int).validate_python(... .pop(...)).
func serviceIndex(attrs *checktypes.InCheckAttributes) (int, error) {
	m, ok := attrs.Metadata.TemplateArgs.(map[string]any)
	if !ok || m == nil {
		return 0, nil
	}
	raw, ok := m["service_index"]
	if !ok {
		return 0, nil
	}
	delete(m, "service_index")
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("service_index must be an integer, got %T", raw)
	}
}

func (b *Backend) CreateCheck(ctx context.Context, auth hooks.UserInfo, attrs checktypes.InCheckAttributes) (checktypes.OutCheck, error) {
	index, err := serviceIndex(&attrs)
	if err != nil {
		return checktypes.OutCheck{}, &checkerr.UserInputError{Reason: err.Error()}
	}
	if index < 0 || index >= len(b.backends) {
		return checktypes.OutCheck{}, &checkerr.UserInputError{Reason: fmt.Sprintf("service_index %d out of range", index)}
	}
	return b.backends[index].CreateCheck(ctx, auth, attrs)
}

// fanOut runs op against every backend concurrently and reduces the results
// per check_backend.py's _process_results: a single success wins, more than
// one is treated as a non-unique id, and with no successes the first
// non-CheckIdError failure (or else the first failure) is returned.
func fanOut(backends []checkbackend.CheckBackend, id checktypes.CheckId, op func(checkbackend.CheckBackend) error) error {
	results := make([]error, len(backends))
	var wg sync.WaitGroup
	for i, backend := range backends {
		wg.Add(1)
		go func(i int, backend checkbackend.CheckBackend) {
			defer wg.Done()
			results[i] = op(backend)
		}(i, backend)
	}
	wg.Wait()

	successes := 0
	var firstFailure, firstNonIdFailure error
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		if firstFailure == nil {
			firstFailure = err
		}
		var idErr *checkerr.CheckIdError
		if firstNonIdFailure == nil && !errors.As(err, &idErr) {
			firstNonIdFailure = err
		}
	}

	switch {
	case successes == 1:
		return nil
	case successes > 1:
		return &checkerr.CheckIdNonUniqueError{CheckID: string(id)}
	case firstNonIdFailure != nil:
		return firstNonIdFailure
	default:
		return firstFailure
	}
}

func (b *Backend) RemoveCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	return fanOut(b.backends, id, func(backend checkbackend.CheckBackend) error {
		return backend.RemoveCheck(ctx, auth, id)
	})
}

func (b *Backend) GetChecks(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error] {
	return func(yield func(checktypes.OutCheck, error) bool) {
		for _, backend := range b.backends {
			cont := true
			backend.GetChecks(ctx, auth, ids)(func(c checktypes.OutCheck, err error) bool {
				cont = yield(c, err)
				return cont
			})
			if !cont {
				return
			}
		}
	}
}

func (b *Backend) RunCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	return fanOut(b.backends, id, func(backend checkbackend.CheckBackend) error {
		return backend.RunCheck(ctx, auth, id)
	})
}
