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

// Package k8s implements the orchestrator CheckBackend: checks are
// Kubernetes CronJobs, grounded on check_backends/k8s_backend/__init__.py.
// Every call builds a fresh controller-runtime client from
// hooks.Registry.GetK8sConfig/GetK8sNamespace and keeps no reference to it
// after returning; there is no explicit release step (spec §5).
package k8s

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktemplate"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/cronvalidate"
	"github.com/resource-health/check-manager/internal/hooks"
)

// Backend is the orchestrator CheckBackend. It holds no live cluster
// connection between calls; every method acquires its own scoped client.
type Backend struct {
	templates *checktemplate.Registry
	hookreg   *hooks.Registry
}

// New wraps a template registry and hook registry. It does not check the
// hooks and never fails: when hookreg has no GetK8sConfig or no
// GetK8sNamespace hook, each operation that needs a client returns an error
// at call time instead.
func New(templates *checktemplate.Registry, hookreg *hooks.Registry) *Backend {
	return &Backend{templates: templates, hookreg: hookreg}
}

func (b *Backend) Close() error { return nil }

// scope resolves a per-request client and namespace. The client holds no
// resources that need releasing; callers simply drop it.
func (b *Backend) scope(ctx context.Context, auth hooks.UserInfo) (client.Client, string, error) {
	if len(b.hookreg.GetK8sConfig) == 0 {
		return nil, "", fmt.Errorf("k8s backend requires at least one GetK8sConfig hook")
	}
	if len(b.hookreg.GetK8sNamespace) == 0 {
		return nil, "", fmt.Errorf("k8s backend requires at least one GetK8sNamespace hook")
	}

	cfg, ok, err := hooks.UntilNotNull(ctx, bindConfig(b.hookreg.GetK8sConfig, auth))
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", &checkerr.Forbidden{Reason: "no k8s configuration resolved for this identity"}
	}

	namespace, ok, err := hooks.UntilNotNull(ctx, bindNamespace(b.hookreg.GetK8sNamespace, auth))
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", &checkerr.Forbidden{Reason: "no k8s namespace resolved for this identity"}
	}

	c, err := client.New(cfg, client.Options{Scheme: scheme.Scheme})
	if err != nil {
		return nil, "", &checkerr.CheckConnectionError{Cause: err}
	}
	return c, namespace, nil
}

func bindConfig(fns []func(context.Context, hooks.UserInfo) (*rest.Config, bool, error), auth hooks.UserInfo) []func(context.Context) (*rest.Config, bool, error) {
	out := make([]func(context.Context) (*rest.Config, bool, error), len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(ctx context.Context) (*rest.Config, bool, error) { return fn(ctx, auth) }
	}
	return out
}

func bindNamespace(fns []func(context.Context, hooks.UserInfo) (string, bool, error), auth hooks.UserInfo) []func(context.Context) (string, bool, error) {
	out := make([]func(context.Context) (string, bool, error), len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(ctx context.Context) (string, bool, error) { return fn(ctx, auth) }
	}
	return out
}

func (b *Backend) GetCheckTemplates(_ context.Context, _ hooks.UserInfo, ids []checktypes.CheckTemplateId) iter.Seq2[checktypes.CheckTemplate, error] {
	return func(yield func(checktypes.CheckTemplate, error) bool) {
		if ids == nil {
			for _, t := range b.templates.List() {
				if !yield(t, nil) {
					return
				}
			}
			return
		}
		for _, id := range ids {
			if maker := b.templates.Get(id); maker != nil {
				if !yield(maker.GetCheckTemplate(), nil) {
					return
				}
			}
		}
	}
}

func (b *Backend) CreateCheck(ctx context.Context, auth hooks.UserInfo, attrs checktypes.InCheckAttributes) (checktypes.OutCheck, error) {
	maker := b.templates.Get(attrs.Metadata.TemplateID)
	if maker == nil {
		return checktypes.OutCheck{}, &checkerr.CheckTemplateIdError{TemplateID: string(attrs.Metadata.TemplateID)}
	}
	if err := cronvalidate.Validate(attrs.Schedule); err != nil {
		return checktypes.OutCheck{}, err
	}

	cronjob, _, err := maker.MakeCronjob(ctx, attrs.Metadata, attrs.Schedule, auth)
	if err != nil {
		return checktypes.OutCheck{}, err
	}

	c, namespace, err := b.scope(ctx, auth)
	if err != nil {
		return checktypes.OutCheck{}, err
	}

	cronjob.Namespace = namespace
	for _, hook := range b.hookreg.OnK8sCronjobCreate {
		if err := hook(ctx, auth, cronjob); err != nil {
			return checktypes.OutCheck{}, err
		}
	}

	if err := c.Create(ctx, cronjob); err != nil {
		if apierrors.IsInvalid(err) {
			return checktypes.OutCheck{}, &checkerr.InternalError{Cause: err}
		}
		return checktypes.OutCheck{}, &checkerr.CheckConnectionError{Cause: err}
	}

	return maker.MakeCheck(cronjob)
}

func (b *Backend) fetch(ctx context.Context, auth hooks.UserInfo, c client.Client, namespace string, id checktypes.CheckId) (*batchv1.CronJob, error) {
	var cronjob batchv1.CronJob
	err := c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: string(id)}, &cronjob)
	if apierrors.IsNotFound(err) {
		return nil, &checkerr.CheckIdError{CheckID: string(id)}
	}
	if err != nil {
		return nil, &checkerr.CheckConnectionError{Cause: err}
	}
	for _, hook := range b.hookreg.OnK8sCronjobAccess {
		if err := hook(ctx, auth, &cronjob); err != nil {
			return nil, err
		}
	}
	return &cronjob, nil
}

func (b *Backend) RemoveCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	c, namespace, err := b.scope(ctx, auth)
	if err != nil {
		return err
	}

	cronjob, err := b.fetch(ctx, auth, c, namespace, id)
	if err != nil {
		return err
	}

	for _, hook := range b.hookreg.OnK8sCronjobRemove {
		if err := hook(ctx, auth, cronjob); err != nil {
			return err
		}
	}

	if err := c.Delete(ctx, cronjob); err != nil {
		if apierrors.IsNotFound(err) {
			return &checkerr.CheckIdError{CheckID: string(id)}
		}
		return &checkerr.CheckConnectionError{Cause: err}
	}
	return nil
}

func (b *Backend) GetChecks(ctx context.Context, auth hooks.UserInfo, ids []checktypes.CheckId) iter.Seq2[checktypes.OutCheck, error] {
	return func(yield func(checktypes.OutCheck, error) bool) {
		c, namespace, err := b.scope(ctx, auth)
		if err != nil {
			yield(checktypes.OutCheck{}, err)
			return
		}

		var list batchv1.CronJobList
		if err := c.List(ctx, &list, client.InNamespace(namespace)); err != nil {
			yield(checktypes.OutCheck{}, &checkerr.CheckConnectionError{Cause: err})
			return
		}

		wanted := map[checktypes.CheckId]bool{}
		for _, id := range ids {
			wanted[id] = true
		}

		for i := range list.Items {
			cronjob := &list.Items[i]
			checkID := checktypes.CheckId(cronjob.Name)
			if ids != nil && !wanted[checkID] {
				continue
			}
			allowed, err := hooks.CheckIfAllow(ctx, checkerr.Is404Like, bindAccess(b.hookreg.OnK8sCronjobAccess, ctx, auth, cronjob))
			if err != nil {
				if !yield(checktypes.OutCheck{}, err) {
					return
				}
				continue
			}
			if !allowed {
				continue
			}
			out := b.templates.MakeCheck(cronjob)
			if !yield(out, nil) {
				return
			}
		}
	}
}

func bindAccess(fns []func(context.Context, hooks.UserInfo, *batchv1.CronJob) error, ctx context.Context, auth hooks.UserInfo, cronjob *batchv1.CronJob) []func(context.Context) error {
	out := make([]func(context.Context) error, len(fns))
	for i, fn := range fns {
		fn := fn
		out[i] = func(context.Context) error { return fn(ctx, auth, cronjob) }
	}
	return out
}

func (b *Backend) RunCheck(ctx context.Context, auth hooks.UserInfo, id checktypes.CheckId) error {
	c, namespace, err := b.scope(ctx, auth)
	if err != nil {
		return err
	}

	cronjob, err := b.fetch(ctx, auth, c, namespace, id)
	if err != nil {
		return err
	}

	for _, hook := range b.hookreg.OnK8sCronjobRun {
		if err := hook(ctx, auth, cronjob); err != nil {
			return err
		}
	}

	job := jobFrom(cronjob)
	if err := c.Create(ctx, job); err != nil {
		if apierrors.IsNotFound(err) {
			return &checkerr.CheckIdError{CheckID: string(id)}
		}
		return &checkerr.CheckConnectionError{Cause: err}
	}
	return nil
}

// jobFrom builds the one-off Job an out-of-schedule run submits, owned by
// the originating CronJob so Kubernetes garbage-collects it alongside it,
// mirroring the original's job_from.
func jobFrom(cronjob *batchv1.CronJob) *batchv1.Job {
	controller := true
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      uuid.NewString(),
			Namespace: cronjob.Namespace,
			OwnerReferences: []metav1.OwnerReference{
				{
					APIVersion: "batch/v1",
					Kind:       "CronJob",
					Name:       cronjob.Name,
					UID:        cronjob.UID,
					Controller: &controller,
				},
			},
		},
		Spec: cronjob.Spec.JobTemplate.Spec,
	}
}
