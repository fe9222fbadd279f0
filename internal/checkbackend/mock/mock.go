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

// Package mock implements an in-memory CheckBackend seeded with demo data,
// grounded on mock_backend.py. It partitions state by the mock username
// resolved through hooks.Registry.GetMockUsername, not by the caller's real
// identity, so the S1-S5 scenarios can exercise the pipeline without a
// cluster.
package mock

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/cronvalidate"
	"github.com/resource-health/check-manager/internal/hooks"
)

func defaultUsername() string {
	if u := os.Getenv("RH_CHECK_MOCK_USERNAME"); u != "" {
		return u
	}
	return "eric"
}

// Backend is a mutex-guarded, per-username map of checks plus a fixed set
// of templates. It never touches a cluster or the network.
type Backend struct {
	templates map[checktypes.CheckTemplateId]checktypes.CheckTemplateAttributes
	hookreg   *hooks.Registry

	mu    sync.Mutex
	state map[string]map[checktypes.CheckId]checktypes.OutCheckAttributes
}

// New seeds the demo template and check mock_backend.py ships, keyed under
// defaultUsername(). reg supplies GetMockUsername; New does not check it,
// and when no hook resolves a username each per-user call returns an error.
func New(reg *hooks.Registry) *Backend {
	b := &Backend{
		templates: map[checktypes.CheckTemplateId]checktypes.CheckTemplateAttributes{
			"check_template1": {
				Metadata: checktypes.CheckTemplateMetadata{
					Label:       "Dummy check template",
					Description: "Dummy check template description",
				},
				Arguments: map[string]any{
					"$schema": "http://json-schema.org/draft-07/schema",
					"type":    "object",
					"properties": map[string]any{
						"script":       map[string]any{"type": "string", "format": "textarea"},
						"requirements": map[string]any{"type": "string", "format": "textarea"},
					},
					"required": []any{"script"},
				},
			},
		},
		hookreg: reg,
		state:   map[string]map[checktypes.CheckId]checktypes.OutCheckAttributes{},
	}
	b.state[defaultUsername()] = map[checktypes.CheckId]checktypes.OutCheckAttributes{
		"check_id_1_iuhwqed7": {
			Metadata: checktypes.OutCheckMetadata{
				Name:         "Simple Health Check",
				TemplateID:   "remote_check_template1",
				TemplateArgs: map[string]any{"script": "Dummy Script"},
			},
			Schedule: "* * * * *",
			OutcomeFilter: checktypes.OutcomeFilter{
				ResourceAttributes: map[string]any{"resource.foo": "bar"},
			},
		},
	}
	return b
}

func (b *Backend) username(ctx context.Context, auth hooks.UserInfo) (string, error) {
	if len(b.hookreg.GetMockUsername) == 0 {
		return "", fmt.Errorf("mock backend requires at least one GetMockUsername hook")
	}
	name, ok, err := hooks.UntilNotNull(ctx, wrapGetUsername(b.hookreg.GetMockUsername, auth))
	if err != nil {
		return "", err
	}
	if !ok {
		return defaultUsername(), nil
	}
	return name, nil
}

func wrapGetUsername(fns []func(context.Context, hooks.UserInfo) (string, bool, error), auth hooks.UserInfo) []func(context.Context) (string, bool, error) {
	out := make([]func(context.Context) (string, bool, error), len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(ctx context.Context) (string, bool, error) { return fn(ctx, auth) }
	}
	return out
}

// Close is a no-op; the backend owns no external resources.
func (b *Backend) Close() error { return nil }

func (b *Backend) GetCheckTemplates(_ context.Context, _ hooks.UserInfo, ids []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error] {
	return func(yield func(checktypes.CheckTemplate, error) bool) {
		if ids == nil {
			for id, attrs := range b.templates {
				if !yield(checktypes.CheckTemplate{ID: id, Attributes: attrs}, nil) {
					return
				}
			}
			return
		}
		for _, id := range ids {
			if attrs, ok := b.templates[id]; ok {
				if !yield(checktypes.CheckTemplate{ID: id, Attributes: attrs}, nil) {
					return
				}
			}
		}
	}
}

// validateTemplateArgs checks args against the template's JSON-Schema
// argument contract, mirroring mock_backend.py.create_check's call to
// validate(template_args, schema) before a check is stored.
func validateTemplateArgs(template checktypes.CheckTemplateAttributes, args apitypes.Json) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(template.Arguments), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validating template_args: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return &checkerr.JsonValidationError{
			Pointer:      "/data/attributes/metadata/template_args/",
			SchemaErrors: errs,
		}
	}
	return nil
}

func (b *Backend) CreateCheck(ctx context.Context, auth hooks.UserInfo, attrs checktypes.InCheckAttributes) (checktypes.OutCheck, error) {
	username, err := b.username(ctx, auth)
	if err != nil {
		return checktypes.OutCheck{}, err
	}
	template, ok := b.templates[attrs.Metadata.TemplateID]
	if !ok {
		return checktypes.OutCheck{}, &checkerr.CheckTemplateIdError{TemplateID: string(attrs.Metadata.TemplateID)}
	}
	if err := cronvalidate.Validate(attrs.Schedule); err != nil {
		return checktypes.OutCheck{}, err
	}
	if err := validateTemplateArgs(template, attrs.Metadata.TemplateArgs); err != nil {
		return checktypes.OutCheck{}, err
	}

	checkID := checktypes.CheckId(uuid.NewString())
	out := checktypes.OutCheckAttributes{
		Metadata: checktypes.OutCheckMetadata{
			Name:         attrs.Metadata.Name,
			Description:  attrs.Metadata.Description,
			TemplateID:   attrs.Metadata.TemplateID,
			TemplateArgs: attrs.Metadata.TemplateArgs,
		},
		Schedule: attrs.Schedule,
		OutcomeFilter: checktypes.OutcomeFilter{
			ResourceAttributes: map[string]any{"k8s.cronjob.name": "resource-health-healthchecks-cronjob-3"},
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state[username] == nil {
		b.state[username] = map[checktypes.CheckId]checktypes.OutCheckAttributes{}
	}
	b.state[username][checkID] = out
	return checktypes.OutCheck{ID: checkID, Attributes: out}, nil
}

func (b *Backend) RemoveCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	username, err := b.username(ctx, auth)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	checks := b.state[username]
	if _, ok := checks[id]; !ok {
		return &checkerr.CheckIdError{CheckID: string(id)}
	}
	delete(checks, id)
	return nil
}

func (b *Backend) GetChecks(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error] {
	return func(yield func(checktypes.OutCheck, error) bool) {
		username, err := b.username(ctx, auth)
		if err != nil {
			yield(checktypes.OutCheck{}, err)
			return
		}
		b.mu.Lock()
		checks := make(map[checktypes.CheckId]checktypes.OutCheckAttributes, len(b.state[username]))
		for id, attrs := range b.state[username] {
			checks[id] = attrs
		}
		b.mu.Unlock()

		if ids == nil {
			for id, attrs := range checks {
				if !yield(checktypes.OutCheck{ID: id, Attributes: attrs}, nil) {
					return
				}
			}
			return
		}
		for _, id := range ids {
			if attrs, ok := checks[id]; ok {
				if !yield(checktypes.OutCheck{ID: id, Attributes: attrs}, nil) {
					return
				}
			}
		}
	}
}

func (b *Backend) RunCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	username, err := b.username(ctx, auth)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.state[username][id]; !ok {
		return &checkerr.CheckIdError{CheckID: string(id)}
	}
	return nil
}
