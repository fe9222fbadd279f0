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

// Package remote implements a CheckBackend that delegates every call to
// another check-manager instance over HTTP, grounded on rest_backend.py
// (mechanics) reconciled against check_backend.py's canonical naming
// (DESIGN.md records the reconciliation).
package remote

import (
	"context"
	"iter"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
	"github.com/resource-health/check-manager/internal/remoteclient"
)

// Backend fronts a remote check-manager's JSON:API surface. It ignores
// auth's locally-resolved identity and sends no credentials of its own to
// the remote.
type Backend struct {
	client *remoteclient.Client
}

// New wraps a remoteclient.Client already bound to the delegate's base URL.
func New(client *remoteclient.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Close() error { return nil }

func (b *Backend) GetCheckTemplates(ctx context.Context, _ hooks.UserInfo, ids []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error] {
	return func(yield func(checktypes.CheckTemplate, error) bool) {
		var page apitypes.APIOKResponseList[checktypes.CheckTemplateAttributes, any]
		query := idQuery(ids)
		if _, err := b.client.Get(ctx, remoteclient.ListCheckTemplatesPath, query, &page); err != nil {
			yield(checktypes.CheckTemplate{}, err)
			return
		}
		for _, res := range page.Data {
			t := checktypes.CheckTemplate{ID: checktypes.CheckTemplateId(res.ID), Attributes: res.Attributes}
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (b *Backend) CreateCheck(ctx context.Context, _ hooks.UserInfo, attrs checktypes.InCheckAttributes) (checktypes.OutCheck, error) {
	body := map[string]any{
		"data": map[string]any{
			"type":       "check",
			"attributes": attrs,
		},
	}
	var resp apitypes.APIOKResponse[checktypes.OutCheckAttributes]
	if _, err := b.client.Post(ctx, remoteclient.NewCheckPath, body, &resp); err != nil {
		return checktypes.OutCheck{}, err
	}
	return checktypes.OutCheck{ID: checktypes.CheckId(resp.Data.ID), Attributes: resp.Data.Attributes}, nil
}

func (b *Backend) RemoveCheck(ctx context.Context, _ hooks.UserInfo, id checktypes.CheckId) error {
	_, err := b.client.Delete(ctx, remoteclient.BuildURL(remoteclient.RemoveCheckPath, id))
	return err
}

func (b *Backend) GetChecks(ctx context.Context, _ hooks.UserInfo, ids []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error] {
	return func(yield func(checktypes.OutCheck, error) bool) {
		var page apitypes.APIOKResponseList[checktypes.OutCheckAttributes, any]
		query := idQuery(ids)
		if _, err := b.client.Get(ctx, remoteclient.ListChecksPath, query, &page); err != nil {
			yield(checktypes.OutCheck{}, err)
			return
		}
		for _, res := range page.Data {
			c := checktypes.OutCheck{ID: checktypes.CheckId(res.ID), Attributes: res.Attributes}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (b *Backend) RunCheck(ctx context.Context, _ hooks.UserInfo, id checktypes.CheckId) error {
	_, err := b.client.Post(ctx, remoteclient.BuildURL(remoteclient.RunCheckPath, id), nil, nil)
	return err
}

func idQuery[T ~string](ids []T) map[string]string {
	if ids == nil {
		return nil
	}
	// resty encodes repeated values from a single comma-joined param; the
	// remote's query parser (spec §6.1) accepts either form.
	joined := ""
	for i, id := range ids {
		if i > 0 {
			joined += ","
		}
		joined += string(id)
	}
	return map[string]string{"id": joined}
}
