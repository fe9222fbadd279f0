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

package checktemplate

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/resource-health/check-manager/internal/apitypes"
	"github.com/resource-health/check-manager/internal/checkerr"
	"github.com/resource-health/check-manager/internal/checktypes"
	"github.com/resource-health/check-manager/internal/hooks"
)

// ScriptURLFunc resolves the runner image's entrypoint script URL from the
// validated template args; most templates return a constant.
type ScriptURLFunc func(args apitypes.Json) (string, error)

// SimpleRunnerConfig configures NewSimpleRunnerTemplate.
type SimpleRunnerConfig struct {
	TemplateID       checktypes.CheckTemplateId
	Label            string
	Description      string
	ArgsSchema       apitypes.Json
	RunnerImage      string
	ScriptURL        ScriptURLFunc
	RequirementsURL  *string
	MitmproxyImage   string // empty disables the sidecar
	MitmproxyEnabled func(args apitypes.Json) bool
}

type simpleRunnerTemplate struct {
	cfg    SimpleRunnerConfig
	schema *gojsonschema.Schema
}

// NewSimpleRunnerTemplate builds a CronjobTemplate for the common case: a
// script-URL runner container plus an optional OIDC-mitmproxy sidecar,
// parameterised by a JSON-Schema argument contract (spec §4.4).
func NewSimpleRunnerTemplate(cfg SimpleRunnerConfig) (CronjobTemplate, error) {
	loader := gojsonschema.NewGoLoader(cfg.ArgsSchema)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for template %s: %w", cfg.TemplateID, err)
	}
	return &simpleRunnerTemplate{cfg: cfg, schema: schema}, nil
}

func (t *simpleRunnerTemplate) GetCheckTemplate() checktypes.CheckTemplate {
	return checktypes.CheckTemplate{
		ID: t.cfg.TemplateID,
		Attributes: checktypes.CheckTemplateAttributes{
			Metadata: checktypes.CheckTemplateMetadata{
				Label:       t.cfg.Label,
				Description: t.cfg.Description,
			},
			Arguments: t.cfg.ArgsSchema,
		},
	}
}

func (t *simpleRunnerTemplate) MakeCronjob(_ context.Context, templateArgs apitypes.Json, schedule checktypes.CronExpression, _ hooks.UserInfo) (*batchv1.CronJob, error) {
	result, err := t.schema.Validate(gojsonschema.NewGoLoader(templateArgs))
	if err != nil {
		return nil, fmt.Errorf("validating template_args: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return nil, &checkerr.JsonValidationError{
			Pointer:      "/data/attributes/metadata/template_args/",
			SchemaErrors: errs,
		}
	}

	scriptURL, err := t.cfg.ScriptURL(templateArgs)
	if err != nil {
		return nil, fmt.Errorf("resolving script url: %w", err)
	}

	containers := buildContainers(t.cfg, scriptURL)
	mitmproxyEnabled := t.cfg.MitmproxyImage != "" && t.cfg.MitmproxyEnabled != nil && t.cfg.MitmproxyEnabled(templateArgs)
	if mitmproxyEnabled {
		containers = append(containers, corev1.Container{
			Name:  "oidc-mitmproxy",
			Image: t.cfg.MitmproxyImage,
		})
	}

	return &batchv1.CronJob{
		Spec: batchv1.CronJobSpec{
			Schedule: string(schedule),
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							RestartPolicy: corev1.RestartPolicyNever,
							Containers:    containers,
						},
					},
				},
			},
		},
	}, nil
}

// buildContainers assembles the script-URL runner container (and, by
// convention, always as containers[0] so telemetry.InjectResourceAttributes
// tags the right container).
func buildContainers(cfg SimpleRunnerConfig, scriptURL string) []corev1.Container {
	env := []corev1.EnvVar{
		{Name: "RH_CHECK_SCRIPT_URL", Value: scriptURL},
	}
	if cfg.RequirementsURL != nil {
		env = append(env, corev1.EnvVar{Name: "RH_CHECK_REQUIREMENTS_URL", Value: *cfg.RequirementsURL})
	}
	return []corev1.Container{
		{
			Name:  "runner",
			Image: cfg.RunnerImage,
			Env:   env,
		},
	}
}

// WithOwnerAnnotation is a small helper hooks can use to stamp the `owner`
// annotation spec §6.3 calls the canonical hook-set example.
func WithOwnerAnnotation(cronjob *batchv1.CronJob, owner string) {
	if cronjob.Annotations == nil {
		cronjob.Annotations = map[string]string{}
	}
	cronjob.Annotations["owner"] = owner
}

// NewObjectMeta is a convenience constructor mirroring the original's
// V1ObjectMeta() default-construction step, kept here so templates never
// need to import metav1 just for this one call.
func NewObjectMeta() metav1.ObjectMeta {
	return metav1.ObjectMeta{}
}
