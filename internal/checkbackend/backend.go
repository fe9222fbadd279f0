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

// Package checkbackend defines the CheckBackend contract every storage and
// orchestration strategy implements (spec §4.5). The aggregation backend
// that fans a single logical backend out across several of them lives in
// the aggregate subpackage.
package checkbackend

import (
	"context"
	"iter"

	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

// CheckBackend is the seam between the request pipeline and wherever checks
// actually live: an in-memory map (mock), a Kubernetes cluster
// (orchestrator), or another check-manager instance (remote). Listing
// methods return iter.Seq2, Go's range-over-func replacement for the
// original's async generators — callers range over the sequence and stop
// early (e.g. once a requested id is found) without the backend needing to
// buffer the whole result set.
type CheckBackend interface {
	// Close releases any resources held for the lifetime of the backend
	// (connections, cached clients). Safe to call once during shutdown.
	Close() error

	// GetCheckTemplates yields every template, or exactly the templates
	// named by ids when ids is non-nil. A name with no matching template is
	// silently omitted, mirroring the original's lookup-per-id loop.
	GetCheckTemplates(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error]

	// CreateCheck materialises a new check from attrs. Returns
	// *checkerr.CheckTemplateIdError if attrs.Metadata.TemplateID is
	// unknown to this backend.
	CreateCheck(ctx context.Context, auth hooks.UserInfo, attrs checktypes.InCheckAttributes) (checktypes.OutCheck, error)

	// RemoveCheck deletes a check. Returns *checkerr.CheckIdError if id is
	// unknown to this backend.
	RemoveCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error

	// GetChecks yields every check visible to auth, or exactly the checks
	// named by ids when ids is non-nil.
	GetChecks(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error]

	// RunCheck triggers an out-of-schedule run of id. Returns
	// *checkerr.CheckIdError if id is unknown to this backend.
	RunCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error
}

// Collect drains a CheckBackend iterator into a slice, returning the first
// error encountered (if any) with whatever was collected before it.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	var err error
	seq(func(v T, e error) bool {
		if e != nil {
			err = e
			return false
		}
		out = append(out, v)
		return true
	})
	return out, err
}
