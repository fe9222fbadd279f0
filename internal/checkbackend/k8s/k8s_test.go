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

package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktemplate"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

func newFakeScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	_ = batchv1.AddToScheme(scheme)
	return scheme
}

func TestJobFrom_OwnsAndCopiesJobTemplateSpec(t *testing.T) {
	parallelism := int32(2)
	cronjob := &batchv1.CronJob{
		ObjectMeta: metav1.ObjectMeta{Name: "check-1", Namespace: "ns", UID: "uid-1"},
		Spec: batchv1.CronJobSpec{
			Schedule: "* * * * *",
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{Parallelism: &parallelism},
			},
		},
	}
	job := jobFrom(cronjob)
	assert.Equal(t, cronjob.Spec.JobTemplate.Spec, job.Spec)

	require.Len(t, job.OwnerReferences, 1)
	owner := job.OwnerReferences[0]
	assert.Equal(t, "CronJob", owner.Kind)
	assert.Equal(t, "check-1", owner.Name)
	assert.Equal(t, cronjob.UID, owner.UID)
	require.NotNil(t, owner.Controller)
	assert.True(t, *owner.Controller)
	assert.Equal(t, "ns", job.Namespace)
	assert.NotEmpty(t, job.Name)
}

func TestFetch_UnknownIdReturnsCheckIdError(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(newFakeScheme()).Build()
	b := &Backend{hookreg: hooks.New()}

	_, err := b.fetch(context.Background(), hooks.UserInfo{}, c, "ns", "does-not-exist")
	var idErr *checkerr.CheckIdError
	assert.ErrorAs(t, err, &idErr)
}

func TestFetch_RunsOnK8sCronjobAccessHooks(t *testing.T) {
	cronjob := &batchv1.CronJob{ObjectMeta: metav1.ObjectMeta{Name: "check-1", Namespace: "ns"}}
	c := fake.NewClientBuilder().WithScheme(newFakeScheme()).WithObjects(cronjob).Build()

	reg := hooks.New()
	var seen string
	reg.OnK8sCronjobAccess = append(reg.OnK8sCronjobAccess, func(_ context.Context, _ hooks.UserInfo, cj *batchv1.CronJob) error {
		seen = cj.Name
		return nil
	})
	b := &Backend{hookreg: reg}

	got, err := b.fetch(context.Background(), hooks.UserInfo{}, c, "ns", "check-1")
	require.NoError(t, err)
	assert.Equal(t, "check-1", got.Name)
	assert.Equal(t, "check-1", seen)
}

func TestCreateCheck_RejectsMalformedCronBeforeTouchingCluster(t *testing.T) {
	tmpl, err := checktemplate.NewSimpleRunnerTemplate(checktemplate.SimpleRunnerConfig{
		TemplateID:  "t1",
		Label:       "Test",
		ArgsSchema:  map[string]any{"type": "object"},
		RunnerImage: "runner:latest",
		ScriptURL:   func(any) (string, error) { return "data:text/plain;base64,", nil },
	})
	require.NoError(t, err)
	registry := checktemplate.NewRegistry([]checktemplate.CronjobTemplate{tmpl})

	b := New(registry, hooks.New())
	_, err = b.CreateCheck(context.Background(), hooks.UserInfo{}, checktypes.InCheckAttributes{
		Metadata: checktypes.InCheckMetadata{TemplateID: "t1"},
		Schedule: "@daily",
	})

	var cronErr *checkerr.CronExpressionValidationError
	assert.ErrorAs(t, err, &cronErr)
}

func TestFetch_DenyingHookPropagatesAsError(t *testing.T) {
	cronjob := &batchv1.CronJob{ObjectMeta: metav1.ObjectMeta{Name: "check-1", Namespace: "ns"}}
	c := fake.NewClientBuilder().WithScheme(newFakeScheme()).WithObjects(cronjob).Build()

	reg := hooks.New()
	reg.OnK8sCronjobAccess = append(reg.OnK8sCronjobAccess, func(context.Context, hooks.UserInfo, *batchv1.CronJob) error {
		return &checkerr.Forbidden{Reason: "no access"}
	})
	b := &Backend{hookreg: reg}

	_, err := b.fetch(context.Background(), hooks.UserInfo{}, c, "ns", "check-1")
	var forbidden *checkerr.Forbidden
	assert.ErrorAs(t, err, &forbidden)
}
