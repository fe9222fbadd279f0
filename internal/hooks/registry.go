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

package hooks

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/client-go/rest"

	"github.com/resource-health/check-manager/internal/checktypes"
)

// UserInfo is the structured projection of raw authentication material,
// produced by OnAuth and threaded through every subsequent hook and backend
// call.
type UserInfo struct {
	UserID   string
	Username string
	Tokens   map[string]string
	Raw      any
}

// Registry holds, per stage, the ordered list of hook functions loaded for
// this process. Hooks run in the order they were appended. Only hooks
// appended in code (cmd/checkmanager's buildHooks) are present; no hook
// plugins are loaded from a directory.
type Registry struct {
	// GetSecurityScheme resolves the raw auth material for a request (e.g.
	// the bearer token string); until-not-null. Absent entirely means auth
	// is null for schemes that don't require it.
	GetSecurityScheme []func(ctx context.Context) (any, bool, error)

	// OnAuth projects raw auth material into a UserInfo; until-not-null.
	OnAuth []func(ctx context.Context, raw any) (UserInfo, bool, error)

	// OnTemplateAccess is run in check-if-allow mode for list/get filtering
	// and in ignore-results mode (which DOES raise) for create.
	OnTemplateAccess []func(ctx context.Context, auth UserInfo, templateID checktypes.CheckTemplateId) error

	// OnCheckAccess is run in check-if-allow mode for list filtering and in
	// ignore-results mode as a post-create / pre-mutate visibility check.
	OnCheckAccess []func(ctx context.Context, auth UserInfo, checkID checktypes.CheckId, templateID checktypes.CheckTemplateId) error

	// OnCheckCreate runs (ignore-results) after OnTemplateAccess and before
	// the backend create call.
	OnCheckCreate []func(ctx context.Context, auth UserInfo, attrs checktypes.InCheckAttributes) error

	// OnCheckRemove runs (ignore-results) before a backend remove call.
	OnCheckRemove []func(ctx context.Context, auth UserInfo, checkID checktypes.CheckId) error

	// OnCheckRun runs (ignore-results) before a backend run call.
	OnCheckRun []func(ctx context.Context, auth UserInfo, checkID checktypes.CheckId) error

	// GetK8sConfig resolves the orchestrator client configuration for a
	// request; until-not-null, required by the k8s backend.
	GetK8sConfig []func(ctx context.Context, auth UserInfo) (*rest.Config, bool, error)

	// GetK8sNamespace resolves the target namespace for a request;
	// until-not-null.
	GetK8sNamespace []func(ctx context.Context, auth UserInfo) (string, bool, error)

	// OnK8sCronjobAccess gates visibility/mutation of a specific CronJob;
	// used both as check-if-allow (list) and ignore-results (remove/run).
	OnK8sCronjobAccess []func(ctx context.Context, auth UserInfo, cronjob *batchv1.CronJob) error

	// OnK8sCronjobCreate mutates a CronJob before submission (ignore-results).
	OnK8sCronjobCreate []func(ctx context.Context, auth UserInfo, cronjob *batchv1.CronJob) error

	// OnK8sCronjobRemove runs (ignore-results) immediately before deletion.
	OnK8sCronjobRemove []func(ctx context.Context, auth UserInfo, cronjob *batchv1.CronJob) error

	// OnK8sCronjobRun runs (ignore-results) immediately before creating the
	// one-off Job.
	OnK8sCronjobRun []func(ctx context.Context, auth UserInfo, cronjob *batchv1.CronJob) error

	// GetMockUsername maps an auth object to the mock backend's partition
	// key; until-not-null.
	GetMockUsername []func(ctx context.Context, auth UserInfo) (string, bool, error)
}

// New returns an empty registry; callers populate stages by appending to
// its fields before the registry is handed to a backend.
func New() *Registry {
	return &Registry{}
}
